package view

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel is the settings form. It writes back into *config.Config on
// ApplyChanges, saves it and reports the new config.
type ConfigPanel interface {
	Build(startRow int) (endRow int) // constructs widgets starting at startRow, returns next free row
	SetRunning(running bool)         // running sessions are restarted on apply
	ApplyChanges()
	Reload() // refreshes widgets from the config
}

type configPanel struct {
	cfg       *config.Config
	cfgPath   string
	logger    *slog.Logger
	onApplied func(*config.Config)
	applyBtn  *ButtonWidget
	fields    []model.FormField
	texts     map[string]*TextWidget
	choices   map[string]*TComboboxWidget
}

// NewConfigPanel creates the view bound to cfg. onApplied may be nil.
func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger, onApplied func(*config.Config)) ConfigPanel {
	return &configPanel{
		cfg:       cfg,
		cfgPath:   cfgPath,
		logger:    logger,
		onApplied: onApplied,
		fields:    model.SettingsFields(),
		texts:     make(map[string]*TextWidget),
		choices:   make(map[string]*TComboboxWidget),
	}
}

func (v *configPanel) Build(startRow int) (row int) {
	row = startRow
	for _, f := range v.fields {
		lbl := Label(Txt(f.Label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		if f.Kind == model.FieldChoice {
			cb := TCombobox(Values(f.Options), Width(16), State("readonly"))
			Grid(cb, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
			v.choices[f.ID] = cb
		} else {
			w := Text(Height(1), Width(16))
			Grid(w, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
			v.texts[f.ID] = w
		}
		row++
	}
	v.Reload()
	v.applyBtn = Button(Txt("Apply Changes"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *configPanel) Reload() {
	values := model.FormValues(v.cfg)
	for _, f := range v.fields {
		if cb := v.choices[f.ID]; cb != nil {
			cb.Current(model.ChoiceIndex(f.Options, values[f.ID]))
			continue
		}
		if w := v.texts[f.ID]; w != nil {
			w.Delete("1.0", END)
			w.Insert("1.0", values[f.ID])
		}
	}
}

func (v *configPanel) SetRunning(running bool) {
	if v.applyBtn == nil {
		return
	}
	if running {
		v.applyBtn.Configure(Txt("Apply and Restart"))
		return
	}
	v.applyBtn.Configure(Txt("Apply Changes"))
}

func (v *configPanel) values() map[string]string {
	out := make(map[string]string, len(v.fields))
	for _, f := range v.fields {
		if cb := v.choices[f.ID]; cb != nil {
			idx, err := strconv.Atoi(cb.Current(nil))
			if err == nil && idx >= 0 && idx < len(f.Options) {
				out[f.ID] = f.Options[idx]
			}
			continue
		}
		if w := v.texts[f.ID]; w != nil {
			out[f.ID] = strings.Join(w.Get("1.0", END), "")
		}
	}
	return out
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	next, invalid := model.ApplyForm(v.cfg, v.values())
	if len(invalid) > 0 && v.logger != nil {
		v.logger.Warn("config fields ignored", "fields", invalid)
	}
	*v.cfg = *next
	v.Reload()
	if err := v.cfg.Save(v.cfgPath); err != nil {
		if v.logger != nil {
			v.logger.Error("config save failed", "error", err)
		}
	} else if v.logger != nil {
		v.logger.Info("config saved", "path", v.cfgPath)
	}
	if v.onApplied != nil {
		v.onApplied(v.cfg.Clone())
	}
}
