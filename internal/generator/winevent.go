package generator

import (
	"encoding/xml"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const eventNamespace = "http://schemas.microsoft.com/win/2004/08/events/event"

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

var (
	guidFormat     = regexp.MustCompile(`^\{[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\}$`)
	hexInt64Format = regexp.MustCompile(`^0[xX][0-9A-Fa-f]{1,16}$`)
	cultureFormat  = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)
)

// standardChannels maps well-known channel names to their fixed ids;
// a descriptor naming one of them must carry the matching id.
var standardChannels = map[string]int{
	"Application":     1,
	"Security":        2,
	"System":          3,
	"Setup":           4,
	"ForwardedEvents": 5,
}

// securityEventNames covers the security audit event ids the renderer
// understands.
var securityEventNames = map[int]string{
	4624: "logon success",
	4625: "logon failed",
	4720: "account created",
	4722: "account enabled",
	4723: "password change",
	4726: "user deleted",
	4740: "account locked",
}

// securityFieldLayouts lists the required EventData names and types per
// security event id. Security events without a layout are rejected.
var securityFieldLayouts = map[int]map[string]string{
	4624: {
		"SubjectUserSid":      "win:SID",
		"SubjectUserName":     "win:UnicodeString",
		"SubjectDomainName":   "win:UnicodeString",
		"SubjectLogonId":      "win:HexInt64",
		"LogonType":           "win:UInt32",
		"RestrictedAdminMode": "win:Boolean",
		"VirtualAccount":      "win:Boolean",
		"ElevatedToken":       "win:Boolean",
	},
}

// validLogonTypes enumerates the defined logon type values; 1 is
// deliberately absent.
var validLogonTypes = map[int]bool{
	0: true, 2: true, 3: true, 4: true, 5: true, 6: true,
	7: true, 8: true, 9: true, 10: true, 11: true,
}

// EventDescriptor carries the fixed identity of one event definition.
type EventDescriptor struct {
	ID      int
	Version int
	Channel int
	Level   int
	Opcode  int
	Task    int
	Keyword string // hex ULONGLONG, e.g. "0x8020000000000000"
}

// EventProvider identifies the emitting provider by name, GUID or both.
type EventProvider struct {
	Name string
	GUID string
}

// EventSystem is the event's System block. TimeCreated and Computer may
// hold a "func_<name>" reference resolved fresh for every event.
type EventSystem struct {
	Provider    EventProvider
	EventID     int
	Qualifiers  string
	Version     int
	Level       int
	Task        int
	Opcode      int
	Keywords    string
	TimeCreated string // empty means the current time per event
	RecordID    int64
	ActivityID  string
	ProcessID   int
	ThreadID    int
	Channel     string
	Computer    string
}

// EventDatum is one EventData entry. Value may be a literal or a
// "func_<name>" reference.
type EventDatum struct {
	Name  string
	Type  string
	Value string
}

// EventMessage is the rendered-message template with positional %N
// parameters.
type EventMessage struct {
	Text   string
	Values []string // literals or func_ references, substituted for %1..%N
}

// RenderingInfo localizes the rendered message.
type RenderingInfo struct {
	Culture string
}

// WindowsEventSpec is one validated windows_event definition.
type WindowsEventSpec struct {
	Descriptor EventDescriptor
	Message    EventMessage
	System     EventSystem
	Data       []EventDatum
	Rendering  *RenderingInfo
}

// Validate checks the whole specification against the event schema:
// descriptor ranges, required System elements, GUID and hex formats,
// channel id consistency, and the field layout of known security events.
func (s *WindowsEventSpec) Validate() error {
	if err := s.Descriptor.validate(); err != nil {
		return err
	}
	if err := s.validateMessage(); err != nil {
		return err
	}
	if err := s.validateSystem(); err != nil {
		return err
	}
	if err := s.validateData(); err != nil {
		return err
	}
	if err := s.validateSecurityEvent(); err != nil {
		return err
	}
	if s.Rendering != nil && !cultureFormat.MatchString(s.Rendering.Culture) {
		return &EventValidationError{Reason: fmt.Sprintf("invalid culture format %q, expected a tag like en-US", s.Rendering.Culture)}
	}
	return nil
}

func (d EventDescriptor) validate() error {
	switch {
	case d.ID < 0:
		return &EventValidationError{Reason: fmt.Sprintf("descriptor id must be non-negative, got %d", d.ID)}
	case d.Version < 0 || d.Version > 255:
		return &EventValidationError{Reason: fmt.Sprintf("descriptor version must be between 0 and 255, got %d", d.Version)}
	case d.Level < 0 || d.Level > 15:
		return &EventValidationError{Reason: fmt.Sprintf("descriptor level must be between 0 and 15, got %d", d.Level)}
	case d.Opcode < 0 || d.Opcode > 240:
		return &EventValidationError{Reason: fmt.Sprintf("descriptor opcode must be between 0 and 240, got %d", d.Opcode)}
	case d.Task < 0:
		return &EventValidationError{Reason: fmt.Sprintf("descriptor task must be non-negative, got %d", d.Task)}
	case d.Keyword == "":
		return &EventValidationError{Reason: "descriptor keyword is required"}
	case !hexInt64Format.MatchString(d.Keyword):
		return &EventValidationError{Reason: fmt.Sprintf("descriptor keyword %q is not a hex value", d.Keyword)}
	}
	return nil
}

func (s *WindowsEventSpec) validateMessage() error {
	if s.Message.Text == "" {
		return &EventValidationError{Reason: "message text is required"}
	}
	// The message may not reference more %N parameters than values exist.
	for i := len(s.Message.Values) + 1; i <= len(s.Message.Values)+9; i++ {
		if strings.Contains(s.Message.Text, "%"+strconv.Itoa(i)) {
			return &EventValidationError{
				Reason: fmt.Sprintf("message references parameter %%%d but only %d values are defined", i, len(s.Message.Values)),
			}
		}
	}
	return nil
}

func (s *WindowsEventSpec) validateSystem() error {
	sys := s.System
	if sys.Provider.Name == "" && sys.Provider.GUID == "" {
		return &EventValidationError{Reason: "provider must have a name or a guid"}
	}
	if sys.Provider.GUID != "" && !guidFormat.MatchString(sys.Provider.GUID) {
		return &EventValidationError{Reason: fmt.Sprintf("invalid provider guid %q", sys.Provider.GUID)}
	}
	if sys.EventID <= 0 {
		return &EventValidationError{Reason: "system event id is required"}
	}
	if sys.Computer == "" {
		return &EventValidationError{Reason: "system computer is required"}
	}
	if sys.Version < 0 || sys.Version > 255 {
		return &EventValidationError{Reason: fmt.Sprintf("system version must be between 0 and 255, got %d", sys.Version)}
	}
	if sys.Level < 0 || sys.Level > 15 {
		return &EventValidationError{Reason: fmt.Sprintf("system level must be between 0 and 15, got %d", sys.Level)}
	}
	if sys.Keywords != "" && !hexInt64Format.MatchString(sys.Keywords) {
		return &EventValidationError{Reason: fmt.Sprintf("invalid keywords format %q", sys.Keywords)}
	}
	if sys.ActivityID != "" && !guidFormat.MatchString(sys.ActivityID) {
		return &EventValidationError{Reason: fmt.Sprintf("invalid activity id guid %q", sys.ActivityID)}
	}
	if sys.ProcessID < 0 || sys.ThreadID < 0 {
		return &EventValidationError{Reason: "process and thread ids must be non-negative"}
	}
	if (sys.ProcessID == 0) != (sys.ThreadID == 0) {
		return &EventValidationError{Reason: "execution requires both a process id and a thread id"}
	}
	if id, known := standardChannels[sys.Channel]; known && s.Descriptor.Channel != id {
		return &EventValidationError{
			Reason: fmt.Sprintf("channel id mismatch for %s: descriptor says %d, standard id is %d", sys.Channel, s.Descriptor.Channel, id),
		}
	}
	return nil
}

func (s *WindowsEventSpec) validateData() error {
	for _, d := range s.Data {
		if d.Name == "" {
			return &EventValidationError{Reason: "every event data entry must have a name"}
		}
		if d.Type == "win:Boolean" && !validBooleanValue(d.Value) {
			return &EventValidationError{Reason: fmt.Sprintf("invalid boolean value for %s: %q", d.Name, d.Value)}
		}
	}
	return nil
}

func (s *WindowsEventSpec) validateSecurityEvent() error {
	id := s.Descriptor.ID
	if _, isSecurity := securityEventNames[id]; !isSecurity {
		return nil
	}
	if len(s.Data) == 0 {
		return &EventValidationError{Reason: fmt.Sprintf("security event %d requires event data", id)}
	}
	layout, ok := securityFieldLayouts[id]
	if !ok {
		return &EventValidationError{Reason: fmt.Sprintf("no field layout defined for security event %d", id)}
	}

	present := make(map[string]EventDatum, len(s.Data))
	for _, d := range s.Data {
		present[d.Name] = d
	}
	for name, wantType := range layout {
		d, ok := present[name]
		if !ok {
			return &EventValidationError{Reason: fmt.Sprintf("security event %d is missing required field %s", id, name)}
		}
		if d.Type != wantType {
			return &EventValidationError{
				Reason: fmt.Sprintf("invalid type for field %s: expected %s, got %s", name, wantType, d.Type),
			}
		}
	}

	if d, ok := present["LogonType"]; ok && !strings.HasPrefix(d.Value, "func_") {
		logonType, err := strconv.Atoi(d.Value)
		if err != nil || !validLogonTypes[logonType] {
			return &EventValidationError{Reason: fmt.Sprintf("invalid logon type %q", d.Value)}
		}
	}
	return nil
}

func validBooleanValue(value string) bool {
	if strings.HasPrefix(value, "func_") {
		return true
	}
	switch strings.ToLower(value) {
	case "yes", "no", "true", "false", "0", "1":
		return true
	}
	return false
}

// WindowsEvent renders one event-log XML document per call from a
// validated specification. Like Template it is owned by a single worker.
type WindowsEvent struct {
	spec     WindowsEventSpec
	registry *Registry
	rnd      *rand.Rand
}

// NewWindowsEvent validates the specification and builds a renderer over
// it. A zero seed derives one from the clock.
func NewWindowsEvent(spec WindowsEventSpec, reg *Registry, seed int64) (*WindowsEvent, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = Default()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &WindowsEvent{
		spec:     spec,
		registry: reg,
		rnd:      rand.New(rand.NewSource(seed)),
	}, nil
}

type xmlProvider struct {
	Name string `xml:"Name,attr,omitempty"`
	Guid string `xml:"Guid,attr,omitempty"`
}

type xmlEventID struct {
	Qualifiers string `xml:"Qualifiers,attr,omitempty"`
	Value      int    `xml:",chardata"`
}

type xmlTimeCreated struct {
	SystemTime string `xml:"SystemTime,attr"`
}

type xmlCorrelation struct {
	ActivityID string `xml:"ActivityID,attr,omitempty"`
}

type xmlExecution struct {
	ProcessID int `xml:"ProcessID,attr"`
	ThreadID  int `xml:"ThreadID,attr"`
}

type xmlSystem struct {
	Provider      xmlProvider     `xml:"Provider"`
	EventID       xmlEventID      `xml:"EventID"`
	Version       int             `xml:"Version"`
	Level         int             `xml:"Level"`
	Task          int             `xml:"Task"`
	Opcode        int             `xml:"Opcode"`
	Keywords      string          `xml:"Keywords,omitempty"`
	TimeCreated   xmlTimeCreated  `xml:"TimeCreated"`
	EventRecordID int64           `xml:"EventRecordID,omitempty"`
	Correlation   *xmlCorrelation `xml:"Correlation,omitempty"`
	Execution     *xmlExecution   `xml:"Execution,omitempty"`
	Channel       string          `xml:"Channel,omitempty"`
	Computer      string          `xml:"Computer"`
}

type xmlData struct {
	Name  string `xml:"Name,attr,omitempty"`
	Type  string `xml:"Type,attr,omitempty"`
	Value string `xml:",chardata"`
}

type xmlEventData struct {
	Data []xmlData `xml:"Data"`
}

type xmlRenderingInfo struct {
	Culture string `xml:"Culture,attr"`
	Message string `xml:"Message"`
}

type xmlEvent struct {
	XMLName       xml.Name          `xml:"Event"`
	Xmlns         string            `xml:"xmlns,attr"`
	System        xmlSystem         `xml:"System"`
	EventData     *xmlEventData     `xml:"EventData,omitempty"`
	RenderingInfo *xmlRenderingInfo `xml:"RenderingInfo,omitempty"`
}

// Next renders a single event as one line of XML. Every func_ reference
// in the specification is resolved fresh, so repeated calls produce
// distinct events from the same definition.
func (w *WindowsEvent) Next() (string, error) {
	sys := w.spec.System

	timeCreated := sys.TimeCreated
	if timeCreated == "" {
		timeCreated = "func_timestamp"
	}
	timeCreated, err := resolveRef(timeCreated, w.registry, w.rnd)
	if err != nil {
		return "", err
	}
	computer, err := resolveRef(sys.Computer, w.registry, w.rnd)
	if err != nil {
		return "", err
	}

	ev := xmlEvent{
		Xmlns: eventNamespace,
		System: xmlSystem{
			Provider:      xmlProvider{Name: sys.Provider.Name, Guid: sys.Provider.GUID},
			EventID:       xmlEventID{Qualifiers: sys.Qualifiers, Value: sys.EventID},
			Version:       sys.Version,
			Level:         sys.Level,
			Task:          sys.Task,
			Opcode:        sys.Opcode,
			Keywords:      sys.Keywords,
			TimeCreated:   xmlTimeCreated{SystemTime: timeCreated},
			EventRecordID: sys.RecordID,
			Channel:       sys.Channel,
			Computer:      computer,
		},
	}
	if sys.ActivityID != "" {
		ev.System.Correlation = &xmlCorrelation{ActivityID: sys.ActivityID}
	}
	if sys.ProcessID != 0 || sys.ThreadID != 0 {
		ev.System.Execution = &xmlExecution{ProcessID: sys.ProcessID, ThreadID: sys.ThreadID}
	}

	if len(w.spec.Data) > 0 {
		data := make([]xmlData, 0, len(w.spec.Data))
		for _, d := range w.spec.Data {
			value, err := resolveRef(d.Value, w.registry, w.rnd)
			if err != nil {
				return "", err
			}
			data = append(data, xmlData{Name: d.Name, Type: d.Type, Value: value})
		}
		ev.EventData = &xmlEventData{Data: data}
	}

	if w.spec.Rendering != nil {
		message, err := w.renderMessage()
		if err != nil {
			return "", err
		}
		ev.RenderingInfo = &xmlRenderingInfo{Culture: w.spec.Rendering.Culture, Message: message}
	}

	body, err := xml.Marshal(ev)
	if err != nil {
		return "", err
	}
	return xmlDeclaration + string(body), nil
}

// renderMessage substitutes resolved values for the %N parameters of the
// message template.
func (w *WindowsEvent) renderMessage() (string, error) {
	text := w.spec.Message.Text
	// Highest index first so %10 is not consumed by %1.
	for i := len(w.spec.Message.Values); i >= 1; i-- {
		value, err := resolveRef(w.spec.Message.Values[i-1], w.registry, w.rnd)
		if err != nil {
			return "", err
		}
		text = strings.ReplaceAll(text, "%"+strconv.Itoa(i), value)
	}
	return text, nil
}

// resolveRef substitutes a "func_<name> arg..." reference through the
// registry; any other string passes through verbatim. Positional args
// map onto the function's declared parameter names.
func resolveRef(value string, reg *Registry, rnd *rand.Rand) (string, error) {
	if !strings.HasPrefix(value, "func_") {
		return value, nil
	}
	tokens := strings.Fields(value)
	name := strings.TrimPrefix(tokens[0], "func_")

	var params map[string]string
	if args := tokens[1:]; len(args) > 0 {
		names, _ := reg.ParamNames(name)
		params = make(map[string]string, len(args))
		for i, arg := range args {
			key := fmt.Sprintf("arg%d", i+1)
			if i < len(names) {
				key = names[i]
			}
			params[key] = arg
		}
	}
	return reg.Call(rnd, name, params)
}
