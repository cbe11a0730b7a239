package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/journal"
)

// ============================================================
// Parse
// ============================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr error
	}{
		{name: "ledwall", payload: `{"ledwall": "HELLO"}`, want: "HELLO"},
		{name: "extra fields ignored", payload: `{"ledwall": "hi", "colour": [255, 0, 0]}`, want: "hi"},
		{name: "unicode text", payload: `{"ledwall": "23°C"}`, want: "23°C"},
		{name: "other field", payload: `{"other": 1}`, wantErr: ErrUnrecognized},
		{name: "empty object", payload: `{}`, wantErr: ErrUnrecognized},
		{name: "empty ledwall", payload: `{"ledwall": ""}`, wantErr: ErrUnrecognized},
		{name: "numeric ledwall", payload: `{"ledwall": 42}`, wantErr: ErrUnrecognized},
		{name: "null ledwall", payload: `{"ledwall": null}`, wantErr: ErrUnrecognized},
		{name: "array", payload: `["ledwall"]`, wantErr: ErrUnrecognized},
		{name: "bare string", payload: `"HELLO"`, wantErr: ErrUnrecognized},
		{name: "null", payload: `null`, wantErr: ErrUnrecognized},
		{name: "truncated", payload: `{"ledwall": "HEL`, wantErr: ErrMalformed},
		{name: "not json", payload: `HELLO`, wantErr: ErrMalformed},
		{name: "empty payload", payload: ``, wantErr: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cmd.LEDWall != tt.want {
				t.Errorf("LEDWall = %q, want %q", cmd.LEDWall, tt.want)
			}
		})
	}
}

// ============================================================
// Dispatcher
// ============================================================

type fakeSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *fakeSink) Show(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.err
}

type fakeJournal struct {
	entries []journal.Entry
	err     error
}

func (j *fakeJournal) Record(_ context.Context, e *journal.Entry) error {
	j.entries = append(j.entries, *e)
	return j.err
}

func (j *fakeJournal) List(context.Context, journal.Filter) (*journal.ListResult, error) {
	return &journal.ListResult{Entries: j.entries}, nil
}

type fakeMetrics struct {
	outcomes []string
}

func (m *fakeMetrics) CommandDispatched(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

type countingLogger struct {
	infos, warns, errs int
}

func (l *countingLogger) Info(string, ...any)  { l.infos++ }
func (l *countingLogger) Warn(string, ...any)  { l.warns++ }
func (l *countingLogger) Error(string, ...any) { l.errs++ }

func TestDispatch(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		sinkErr     error
		want        Outcome
		wantShown   []string
		wantMessage string
		wantWarns   int
	}{
		{
			name:        "ledwall reaches sink exactly",
			payload:     `{"ledwall": "HELLO"}`,
			want:        OutcomeDisplayed,
			wantShown:   []string{"HELLO"},
			wantMessage: "HELLO",
		},
		{
			name:      "unknown shape dropped",
			payload:   `{"other": 1}`,
			want:      OutcomeUnrecognized,
			wantWarns: 1,
		},
		{
			name:      "malformed dropped",
			payload:   `{not json`,
			want:      OutcomeMalformed,
			wantWarns: 1,
		},
		{
			name:        "sink failure",
			payload:     `{"ledwall": "HELLO"}`,
			sinkErr:     errors.New("queue full"),
			want:        OutcomeDisplayFailed,
			wantShown:   []string{"HELLO"},
			wantMessage: "HELLO",
			wantWarns:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{err: tt.sinkErr}
			j := &fakeJournal{}
			m := &fakeMetrics{}
			logger := &countingLogger{}
			d := NewDispatcher(Deps{Sink: sink, Journal: j, Metrics: m, Logger: logger})

			got := d.Dispatch(context.Background(), "sensehat/commands", []byte(tt.payload))
			if got != tt.want {
				t.Errorf("Dispatch() = %q, want %q", got, tt.want)
			}

			if len(sink.texts) != len(tt.wantShown) {
				t.Fatalf("sink calls = %v, want %v", sink.texts, tt.wantShown)
			}
			for i := range tt.wantShown {
				if sink.texts[i] != tt.wantShown[i] {
					t.Errorf("sink text = %q, want %q", sink.texts[i], tt.wantShown[i])
				}
			}

			if len(j.entries) != 1 {
				t.Fatalf("journal entries = %d, want 1", len(j.entries))
			}
			e := j.entries[0]
			if e.Outcome != string(tt.want) || e.Topic != "sensehat/commands" || e.Payload != tt.payload {
				t.Errorf("journal entry = %+v", e)
			}
			if e.Message != tt.wantMessage {
				t.Errorf("journal message = %q, want %q", e.Message, tt.wantMessage)
			}
			if (tt.want == OutcomeDisplayed) != (e.Error == "") {
				t.Errorf("journal error = %q for outcome %q", e.Error, tt.want)
			}
			if e.ReceivedAt.IsZero() {
				t.Error("journal ReceivedAt not set")
			}

			if len(m.outcomes) != 1 || m.outcomes[0] != string(tt.want) {
				t.Errorf("metrics outcomes = %v", m.outcomes)
			}
			if logger.warns != tt.wantWarns {
				t.Errorf("warn calls = %d, want %d", logger.warns, tt.wantWarns)
			}
		})
	}
}

func TestDispatch_JournalFailureIsLogged(t *testing.T) {
	logger := &countingLogger{}
	d := NewDispatcher(Deps{
		Sink:    &fakeSink{},
		Journal: &fakeJournal{err: errors.New("disk full")},
		Logger:  logger,
	})

	if got := d.Dispatch(context.Background(), "t", []byte(`{"ledwall":"x"}`)); got != OutcomeDisplayed {
		t.Errorf("Dispatch() = %q, want displayed", got)
	}
	if logger.errs != 1 {
		t.Errorf("error calls = %d, want 1", logger.errs)
	}
}

func TestDispatch_OptionalDeps(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(Deps{Sink: sink})

	if got := d.Dispatch(context.Background(), "t", []byte(`{"ledwall":"x"}`)); got != OutcomeDisplayed {
		t.Errorf("Dispatch() = %q, want displayed", got)
	}
	if got := d.Dispatch(context.Background(), "t", []byte(`nope`)); got != OutcomeMalformed {
		t.Errorf("Dispatch() = %q, want malformed", got)
	}
	if len(sink.texts) != 1 {
		t.Errorf("sink calls = %d, want 1", len(sink.texts))
	}
}
