package translation

import (
	"context"
	"strings"

	"github.com/soocke/lipread-go/domain/stage"
)

// DictionaryTranslator looks phrases up in built-in tables keyed by
// "source-target". Unknown phrases come back as "[Translated: <text>]".
type DictionaryTranslator struct {
	tables map[string]map[string]string
}

// NewDictionaryTranslator returns a translator over the demo phrase tables
// merged with extra (keyed "source-target", then phrase).
func NewDictionaryTranslator(extra map[string]map[string]string) *DictionaryTranslator {
	d := &DictionaryTranslator{tables: make(map[string]map[string]string)}
	for pair, table := range demoTables {
		d.merge(pair, table)
	}
	for pair, table := range extra {
		d.merge(pair, table)
	}
	return d
}

func (d *DictionaryTranslator) merge(pair string, table map[string]string) {
	dst := d.tables[pair]
	if dst == nil {
		dst = make(map[string]string, len(table))
		d.tables[pair] = dst
	}
	for k, v := range table {
		dst[k] = v
	}
}

func (d *DictionaryTranslator) Translate(ctx context.Context, text, source, target string) (Translation, error) {
	if err := ctx.Err(); err != nil {
		return Translation{}, stage.Wrap(stage.Translation, err)
	}
	res := Translation{Text: text, Source: source, Target: target}
	key := strings.ToLower(source) + "-" + strings.ToLower(target)
	if table, ok := d.tables[key]; ok {
		if out, ok := table[strings.TrimSpace(text)]; ok {
			res.Translated = out
			return res, nil
		}
	}
	res.Translated = "[Translated: " + text + "]"
	return res, nil
}

var demoTables = map[string]map[string]string{
	"pt-en": {
		"Olá, como você está?":    "Hello, how are you?",
		"Bom dia!":                "Good morning!",
		"Boa tarde!":              "Good afternoon!",
		"Boa noite!":              "Good night!",
		"Obrigado pela atenção":   "Thank you for your attention",
		"Até logo":                "See you later",
		"Como posso ajudar?":      "How can I help?",
		"Muito obrigado":          "Thank you very much",
		"Por favor":               "Please",
		"Desculpe":                "Sorry",
		"Onde fica o banheiro?":   "Where is the bathroom?",
		"Quanto custa?":           "How much does it cost?",
		"Eu não entendo":          "I don't understand",
		"Você fala inglês?":       "Do you speak English?",
		"Qual é o seu nome?":      "What is your name?",
		"Meu nome é":              "My name is",
		"Prazer em conhecê-lo":    "Nice to meet you",
		"Como está o tempo hoje?": "How is the weather today?",
		"Estou com fome":          "I am hungry",
		"Preciso de ajuda":        "I need help",
	},
	"en-pt": {
		"Hello, how are you?":          "Olá, como você está?",
		"Good morning!":                "Bom dia!",
		"Good afternoon!":              "Boa tarde!",
		"Good night!":                  "Boa noite!",
		"Thank you for your attention": "Obrigado pela atenção",
		"See you later":                "Até logo",
		"How can I help?":              "Como posso ajudar?",
		"Thank you very much":          "Muito obrigado",
		"Please":                       "Por favor",
		"Sorry":                        "Desculpe",
	},
	"pt-es": {
		"Olá, como você está?":  "Hola, ¿cómo estás?",
		"Bom dia!":              "¡Buenos días!",
		"Boa tarde!":            "¡Buenas tardes!",
		"Boa noite!":            "¡Buenas noches!",
		"Obrigado pela atenção": "Gracias por su atención",
		"Até logo":              "Hasta luego",
		"Muito obrigado":        "Muchas gracias",
		"Por favor":             "Por favor",
		"Desculpe":              "Lo siento",
	},
	"es-pt": {
		"Hola, ¿cómo estás?":      "Olá, como você está?",
		"¡Buenos días!":           "Bom dia!",
		"¡Buenas tardes!":         "Boa tarde!",
		"¡Buenas noches!":         "Boa noite!",
		"Gracias por su atención": "Obrigado pela atenção",
		"Hasta luego":             "Até logo",
		"Muchas gracias":          "Muito obrigado",
		"Lo siento":               "Desculpe",
	},
}
