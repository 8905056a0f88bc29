package view

import (
	"github.com/soocke/lipread-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CaptionPanel shows the recognized phrase, its translation and the status
// line.
type CaptionPanel interface {
	SetCaption(original, translated, confidence string)
	ClearCaption(note string)
	SetStatus(text string)
	SetHealth(text string)
}

type captionPanel struct {
	original   *TLabelWidget
	translated *TLabelWidget
	confidence *TLabelWidget
	status     *TLabelWidget
	health     *TLabelWidget
}

// NewCaptionPanel grids the caption rows in a frame spanning columns 0-3 of row.
func NewCaptionPanel(row int) CaptionPanel {
	frame := Frame(Borderwidth(1), Relief("groove"))
	Grid(frame, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	p := &captionPanel{
		original:   TLabel(Style(theme.StyleOriginalLabel), Txt("..."), Anchor("w"), Wraplength("90m")),
		translated: TLabel(Style(theme.StyleTranslatedLabel), Txt("Press Start to read lips"), Anchor("w"), Wraplength("90m")),
		confidence: TLabel(Style(theme.StyleOriginalLabel), Txt(""), Anchor("e")),
		status:     TLabel(Style(theme.StyleStatusLabel), Txt(""), Anchor("w")),
		health:     TLabel(Style(theme.StyleStatusLabel), Txt(""), Anchor("e")),
	}
	Grid(p.original, In(frame), Row(0), Column(0), Sticky("we"), Padx("0.3m"))
	Grid(p.confidence, In(frame), Row(0), Column(1), Sticky("e"), Padx("0.3m"))
	Grid(p.translated, In(frame), Row(1), Column(0), Columnspan(2), Sticky("we"), Padx("0.3m"), Pady("0.2m"))
	Grid(p.status, In(frame), Row(2), Column(0), Sticky("we"), Padx("0.3m"))
	Grid(p.health, In(frame), Row(2), Column(1), Sticky("e"), Padx("0.3m"))
	GridColumnConfigure(frame.Window, 0, Weight(1))
	return p
}

func (p *captionPanel) SetCaption(original, translated, confidence string) {
	p.original.Configure(Txt(original))
	p.translated.Configure(Txt(translated))
	p.confidence.Configure(Txt(confidence))
}

func (p *captionPanel) ClearCaption(note string) {
	p.original.Configure(Txt("..."))
	p.translated.Configure(Txt(note))
	p.confidence.Configure(Txt(""))
}

func (p *captionPanel) SetStatus(text string) { p.status.Configure(Txt(text)) }

func (p *captionPanel) SetHealth(text string) { p.health.Configure(Txt(text)) }
