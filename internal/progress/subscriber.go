// Package progress tracks one server-side enhancement job over its push
// channel. Each inbound message is a full snapshot that replaces local state
// wholesale; the subscriber never merges fields or recomputes percentages.
package progress

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"photoflow/internal/domain"
)

// Outcome is how an attachment ended.
type Outcome string

const (
	// OutcomeFinished: the job reported finished.
	OutcomeFinished Outcome = "finished"
	// OutcomeFailed: the job reported failed or error.
	OutcomeFailed Outcome = "failed"
	// OutcomeUnknown: the channel ended before a terminal status, or a
	// message violated the protocol. The job may still have completed
	// server-side; only the REST status endpoint can tell.
	OutcomeUnknown Outcome = "unknown"
)

// snapshotMessage is the wire shape of one progress frame.
type snapshotMessage struct {
	JobID           string   `json:"job_id"`
	Status          string   `json:"status"`
	Current         int      `json:"current"`
	Total           int      `json:"total"`
	Message         string   `json:"message"`
	Percent         float64  `json:"percent"`
	Successful      *int     `json:"successful"`
	Failed          *int     `json:"failed"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

// UpdateFunc receives every accepted snapshot.
type UpdateFunc func(domain.BatchJob)

// Options configures a Subscriber.
type Options struct {
	Dialer   *websocket.Dialer
	Logger   *zerolog.Logger
	OnUpdate UpdateFunc
}

// Subscriber follows a single job id over one streaming connection at a
// time. Attaching while attached detaches the previous connection first.
type Subscriber struct {
	dialer   *websocket.Dialer
	logger   zerolog.Logger
	onUpdate UpdateFunc

	mu       sync.Mutex
	conn     *websocket.Conn
	snapshot *domain.BatchJob
	outcome  Outcome
	done     chan struct{}
}

// New constructs a detached subscriber.
func New(opts Options) *Subscriber {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Subscriber{
		dialer:   dialer,
		logger:   logger.With().Str("component", "progress").Logger(),
		onUpdate: opts.OnUpdate,
	}
}

// Attach opens the stream at url and follows it until a terminal status or
// channel failure. A previous attachment is detached first; there is never
// more than one live connection per subscriber.
func (s *Subscriber) Attach(ctx context.Context, url string) error {
	s.Detach()

	conn, resp, err := s.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return &domain.TransportError{Op: "progress attach", Err: err}
	}

	s.mu.Lock()
	s.conn = conn
	s.snapshot = nil
	s.outcome = OutcomeUnknown
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.readLoop(conn, done)
	return nil
}

// Detach closes the channel. It is idempotent and safe before any message
// has arrived.
func (s *Subscriber) Detach() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Done is closed when the current attachment stops, for any reason.
// It returns nil when the subscriber was never attached.
func (s *Subscriber) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Snapshot returns the latest accepted job snapshot.
func (s *Subscriber) Snapshot() (domain.BatchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return domain.BatchJob{}, false
	}
	return *s.snapshot, true
}

// Outcome reports how the last attachment ended. Before the stream ends it
// reports OutcomeUnknown.
func (s *Subscriber) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Subscriber) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			detachedLocally := s.conn != conn // Detach or a newer Attach replaced us
			s.mu.Unlock()
			if !detachedLocally {
				// The channel dropped before a terminal status. The job may
				// have completed server-side; this is not a job failure.
				s.logger.Warn().Err(err).Msg("stream closed before terminal status")
				s.finish(OutcomeUnknown)
			}
			return
		}

		job, perr := decodeSnapshot(raw)
		if perr != nil {
			s.logger.Warn().Err(perr).Msg("protocol error on stream")
			s.finish(OutcomeUnknown)
			s.Detach()
			return
		}

		s.mu.Lock()
		s.snapshot = &job
		s.mu.Unlock()
		if s.onUpdate != nil {
			s.onUpdate(job)
		}

		if job.Status.Terminal() {
			// No further messages are trusted after a terminal status, even
			// if the server keeps the channel open.
			switch job.Status {
			case domain.JobFinished:
				s.finish(OutcomeFinished)
			default:
				s.finish(OutcomeFailed)
			}
			s.Detach()
			return
		}
	}
}

func (s *Subscriber) finish(outcome Outcome) {
	s.mu.Lock()
	s.outcome = outcome
	s.mu.Unlock()
}

// decodeSnapshot validates one frame against the message contract: job_id
// and a known status tag are required, everything else is taken verbatim.
func decodeSnapshot(raw []byte) (domain.BatchJob, error) {
	var msg snapshotMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.BatchJob{}, &domain.ProtocolError{Op: "progress", Reason: "malformed frame", Err: err}
	}
	if msg.JobID == "" {
		return domain.BatchJob{}, &domain.ProtocolError{Op: "progress", Reason: "frame missing job_id"}
	}
	status := domain.JobStatus(msg.Status)
	if !status.Known() {
		return domain.BatchJob{}, &domain.ProtocolError{Op: "progress", Reason: "unknown status tag " + msg.Status}
	}

	job := domain.BatchJob{
		ID:       msg.JobID,
		Status:   status,
		Progress: domain.Progress{Current: msg.Current, Total: msg.Total},
		Message:  msg.Message,
		// percent is server-computed; it is carried, never recomputed.
		Percent: msg.Percent,
	}
	if status.Terminal() && msg.Successful != nil && msg.Failed != nil {
		summary := domain.ResultSummary{Successful: *msg.Successful, Failed: *msg.Failed}
		if msg.DurationSeconds != nil {
			summary.DurationSeconds = *msg.DurationSeconds
		}
		job.Summary = &summary
	}
	return job, nil
}
