package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/logsmith/logsmith/internal/config"
	"github.com/logsmith/logsmith/internal/generator"
)

const samplePattern = `
name: firewall
enabled: True
path: /var/log/firewall.log
eps: 150
correction: 10
time_period: 300
generator_type: template
template:
  - "src=${src} dst=${dst} action=${action}"
  - "src=${src} blocked"
fields:
  src: func_randip
  dst: func_randip
  action:
    - ALLOW
    - DENY
`

func TestParsePattern(t *testing.T) {
	p, err := config.ParsePattern([]byte(samplePattern), generator.Default())
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}

	if p.Name != "firewall" {
		t.Errorf("Name = %q, want firewall", p.Name)
	}
	if !p.Enabled {
		t.Error("Enabled = false, want true")
	}
	if p.EPS != 150 {
		t.Errorf("EPS = %v, want 150", p.EPS)
	}
	if p.Correction != 10 {
		t.Errorf("Correction = %v, want 10", p.Correction)
	}
	if p.TimePeriod != 5*time.Minute {
		t.Errorf("TimePeriod = %s, want 5m", p.TimePeriod)
	}
	if len(p.Templates) != 2 {
		t.Fatalf("Templates len = %d, want 2", len(p.Templates))
	}
	if p.Fields["src"].Function != "randip" {
		t.Errorf("src Function = %q, want randip", p.Fields["src"].Function)
	}
	if got := p.Fields["action"].Values; len(got) != 2 || got[0] != "ALLOW" {
		t.Errorf("action Values = %v, want [ALLOW DENY]", got)
	}
}

func TestParsePatternSingleTemplateString(t *testing.T) {
	p, err := config.ParsePattern([]byte("name: one\ntemplate: \"msg=${msg}\"\n"), nil)
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}
	if len(p.Templates) != 1 || p.Templates[0] != "msg=${msg}" {
		t.Errorf("Templates = %v, want [msg=${msg}]", p.Templates)
	}
}

func TestParsePatternDefaultsGeneratorType(t *testing.T) {
	p, err := config.ParsePattern([]byte("name: bare\n"), nil)
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}
	if p.GeneratorType != config.GeneratorTypeTemplate {
		t.Errorf("GeneratorType = %q, want template", p.GeneratorType)
	}
}

func TestParsePatternFuncShorthandWithArgs(t *testing.T) {
	data := []byte("name: s\nfields:\n  code: func_randint 200 503\n")

	p, err := config.ParsePattern(data, generator.Default())
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}

	field := p.Fields["code"]
	if field.Function != "randint" {
		t.Fatalf("Function = %q, want randint", field.Function)
	}
	if field.Params["min"] != "200" || field.Params["max"] != "503" {
		t.Errorf("Params = %v, want min=200 max=503", field.Params)
	}
}

func TestParsePatternFuncShorthandWithoutRegistry(t *testing.T) {
	data := []byte("name: s\nfields:\n  code: func_mystery 1 2\n")

	p, err := config.ParsePattern(data, nil)
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}

	field := p.Fields["code"]
	if field.Params["arg1"] != "1" || field.Params["arg2"] != "2" {
		t.Errorf("Params = %v, want positional arg1/arg2 fallback", field.Params)
	}
}

func TestParsePatternStructuredField(t *testing.T) {
	data := []byte(`
name: s
fields:
  port:
    function: randint
    params:
      min: 1024
      max: 65535
`)
	p, err := config.ParsePattern(data, nil)
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}

	field := p.Fields["port"]
	if field.Function != "randint" {
		t.Errorf("Function = %q, want randint", field.Function)
	}
	if field.Params["min"] != "1024" || field.Params["max"] != "65535" {
		t.Errorf("Params = %v, want min=1024 max=65535", field.Params)
	}
}

func TestParsePatternScalarFieldBecomesSingleValue(t *testing.T) {
	data := []byte("name: s\nfields:\n  env: production\n")

	p, err := config.ParsePattern(data, nil)
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}
	if got := p.Fields["env"].Values; len(got) != 1 || got[0] != "production" {
		t.Errorf("env Values = %v, want [production]", got)
	}
}

func TestParsePatternNumericListValues(t *testing.T) {
	data := []byte("name: s\nfields:\n  code:\n    - 200\n    - 404\n")

	p, err := config.ParsePattern(data, nil)
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}
	if got := p.Fields["code"].Values; len(got) != 2 || got[0] != "200" || got[1] != "404" {
		t.Errorf("code Values = %v, want [200 404]", got)
	}
}

func TestParsePatternRejectsUnknownFieldKey(t *testing.T) {
	data := []byte("name: s\nfields:\n  x:\n    bogus: 1\n")

	if _, err := config.ParsePattern(data, nil); err == nil {
		t.Fatal("ParsePattern() error = nil, want unknown-key error")
	}
}

func TestParsePatternRejectsFunctionWithValues(t *testing.T) {
	data := []byte(`
name: s
fields:
  x:
    function: randip
    list:
      - 10.0.0.1
`)
	if _, err := config.ParsePattern(data, nil); err == nil {
		t.Fatal("ParsePattern() error = nil, want mutual-exclusion error")
	}
}

const sampleWindowsEventPattern = `
name: security_logon
enabled: True
path: /var/log/winevent.log
eps: 5
generator_type: windows_event
event_descriptor:
  id: 4624
  version: 0
  channel: 2
  level: 0
  opcode: 0
  task: 12544
  keyword: "0x8020000000000000"
template:
  message: "An account was successfully logged on. Security ID: %1"
  values:
    - func_sid
event:
  system:
    provider:
      name: Microsoft-Windows-Security-Auditing
      guid: "{54849625-5478-4994-A5BA-3E3B0328C30D}"
    event_id: 4624
    task: 12544
    keywords: "0x8020000000000000"
    time_created: func_timestamp
    process_id: 712
    thread_id: 980
    channel: Security
    computer: func_hostname
  data:
    - name: SubjectUserSid
      type: win:SID
      value: func_sid
    - name: LogonType
      type: win:UInt32
      value: "2"
  rendering:
    culture: en-US
`

func TestParseWindowsEventPattern(t *testing.T) {
	p, err := config.ParsePattern([]byte(sampleWindowsEventPattern), generator.Default())
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}

	if p.GeneratorType != config.GeneratorTypeWindowsEvent {
		t.Fatalf("GeneratorType = %q, want windows_event", p.GeneratorType)
	}
	if p.Templates != nil {
		t.Errorf("Templates = %v, want nil for windows_event", p.Templates)
	}
	if p.Descriptor == nil || p.Descriptor.ID != 4624 || p.Descriptor.Keyword != "0x8020000000000000" {
		t.Fatalf("Descriptor = %+v, want id 4624 with keyword", p.Descriptor)
	}
	if p.Message == nil || !strings.Contains(p.Message.Message, "%1") {
		t.Fatalf("Message = %+v, want text with %%1 parameter", p.Message)
	}
	if len(p.Message.Values) != 1 || p.Message.Values[0] != "func_sid" {
		t.Errorf("Message values = %v, want [func_sid]", p.Message.Values)
	}
	if p.Event == nil {
		t.Fatal("Event = nil")
	}
	if p.Event.System.Provider.Name != "Microsoft-Windows-Security-Auditing" {
		t.Errorf("provider = %q", p.Event.System.Provider.Name)
	}
	if p.Event.System.Computer != "func_hostname" {
		t.Errorf("computer = %q, want func_hostname reference preserved", p.Event.System.Computer)
	}
	if len(p.Event.Data) != 2 || p.Event.Data[0].Type != "win:SID" {
		t.Errorf("event data = %+v", p.Event.Data)
	}
	if p.Event.Rendering == nil || p.Event.Rendering.Culture != "en-US" {
		t.Errorf("rendering = %+v, want en-US", p.Event.Rendering)
	}
}

func TestParseWindowsEventPatternRejectsStringTemplate(t *testing.T) {
	data := []byte("name: s\ngenerator_type: windows_event\ntemplate: \"plain string\"\n")

	if _, err := config.ParsePattern(data, nil); err == nil {
		t.Fatal("ParsePattern() error = nil, want message-mapping error")
	}
}

func TestValidatePatternsWindowsEventRequiresBlocks(t *testing.T) {
	patterns := []config.Pattern{{
		Name:          "bare",
		Enabled:       true,
		Path:          "/tmp/ev.log",
		EPS:           1,
		GeneratorType: config.GeneratorTypeWindowsEvent,
	}}

	err := config.ValidatePatterns(patterns)
	if err == nil {
		t.Fatal("ValidatePatterns() error = nil, want missing-block issues")
	}
	for _, want := range []string{"event_descriptor", "event is required", "template message"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %v, want mention of %q", err, want)
		}
	}
}

func TestValidatePatternsAcceptsWindowsEvent(t *testing.T) {
	p, err := config.ParsePattern([]byte(sampleWindowsEventPattern), generator.Default())
	if err != nil {
		t.Fatalf("ParsePattern() error = %v", err)
	}
	if err := config.ValidatePatterns([]config.Pattern{p}); err != nil {
		t.Fatalf("ValidatePatterns() error = %v", err)
	}
}

func writePatternFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadPatternsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writePatternFile(t, dir, "b.yml", "name: beta\nenabled: false\n")
	writePatternFile(t, dir, "a.yaml", "name: alpha\nenabled: false\n")
	writePatternFile(t, dir, "ignored.txt", "name: nope\n")

	cfg := &config.Config{PatternsDir: dir}
	patterns, err := config.LoadPatterns(cfg, nil)
	if err != nil {
		t.Fatalf("LoadPatterns() error = %v", err)
	}

	if len(patterns) != 2 {
		t.Fatalf("patterns len = %d, want 2", len(patterns))
	}
	if patterns[0].Name != "alpha" || patterns[1].Name != "beta" {
		t.Errorf("pattern order = [%s %s], want [alpha beta]", patterns[0].Name, patterns[1].Name)
	}
}

func TestLoadPatternsExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	path := writePatternFile(t, dir, "one.yml", samplePattern)

	cfg := &config.Config{PatternFiles: []string{path}}
	patterns, err := config.LoadPatterns(cfg, generator.Default())
	if err != nil {
		t.Fatalf("LoadPatterns() error = %v", err)
	}
	if len(patterns) != 1 || patterns[0].Name != "firewall" {
		t.Errorf("patterns = %v, want single firewall pattern", patterns)
	}
}

func TestLoadPatternsEmptyDirectory(t *testing.T) {
	cfg := &config.Config{PatternsDir: t.TempDir()}

	if _, err := config.LoadPatterns(cfg, nil); err == nil {
		t.Fatal("LoadPatterns() error = nil, want no-files error")
	}
}

func TestLoadPatternsReportsFileInError(t *testing.T) {
	dir := t.TempDir()
	writePatternFile(t, dir, "bad.yml", "name: [broken\n")

	cfg := &config.Config{PatternsDir: dir}
	_, err := config.LoadPatterns(cfg, nil)
	if err == nil {
		t.Fatal("LoadPatterns() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "bad.yml") {
		t.Errorf("error = %v, want file name in message", err)
	}
}

func TestLoadPatternsValidatesSet(t *testing.T) {
	dir := t.TempDir()
	writePatternFile(t, dir, "a.yml", "name: dup\nenabled: false\n")
	writePatternFile(t, dir, "b.yml", "name: dup\nenabled: false\n")

	cfg := &config.Config{PatternsDir: dir}
	if _, err := config.LoadPatterns(cfg, nil); err == nil {
		t.Fatal("LoadPatterns() error = nil, want duplicate-name error")
	}
}
