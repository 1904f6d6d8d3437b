package progress

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageRunStop     Stage = "RUN_STOP"
	StageKeywords    Stage = "KEYWORDS"
	StageFetchDone   Stage = "FETCH_DONE"
	StageFetchError  Stage = "FETCH_ERROR"
	StageHit         Stage = "HIT"
	StageNotifySent  Stage = "NOTIFY_SENT"
	StageNotifyError Stage = "NOTIFY_ERROR"
)

const keywordPreview = 3

// Event captures a single milestone of a monitor run.
type Event struct {
	// RunID identifies the run that emitted the event.
	RunID string `json:"run_id"`
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time `json:"ts"`
	Stage Stage     `json:"stage"`
	// Mode is the keyword mode of the run.
	Mode string `json:"mode,omitempty"`
	// URL is the target page; it never contains credentials.
	URL string `json:"url,omitempty"`
	// Keywords is the resolved keyword list (KEYWORDS only).
	Keywords []string `json:"keywords,omitempty"`
	// Fallback marks a keyword list that came from the fallback set.
	Fallback bool `json:"fallback,omitempty"`
	// Count is the number of candidates fetched or the seen set size.
	Count int `json:"count,omitempty"`
	// Keyword, Title and Link describe a hit.
	Keyword string `json:"keyword,omitempty"`
	Title   string `json:"title,omitempty"`
	Link    string `json:"link,omitempty"`
	// StatusCode is the HTTP status of a failed fetch or send, when known.
	StatusCode int `json:"status_code,omitempty"`
	// Dur is the fetch latency, or the delay before the next pass on FETCH_ERROR.
	Dur time.Duration `json:"dur,omitempty"`
	// Note carries low-volume context such as error text.
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunStop, StageKeywords:
	case StageFetchDone, StageFetchError:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Stage)
		}
	case StageHit, StageNotifySent, StageNotifyError:
		if e.Title == "" {
			return fmt.Errorf("%s requires title", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// Line renders the event as a single human-readable status line.
func (e Event) Line() string {
	return fmt.Sprintf("[%s] %s", e.TS.Local().Format("15:04:05"), e.message())
}

func (e Event) message() string {
	switch e.Stage {
	case StageRunStart:
		return fmt.Sprintf("monitor started (mode=%s, target=%s)", e.Mode, e.URL)
	case StageRunStop:
		if e.Note != "" {
			return "monitor stopped: " + e.Note
		}
		return "monitor stopped"
	case StageKeywords:
		preview := e.Keywords
		if len(preview) > keywordPreview {
			preview = preview[:keywordPreview]
		}
		msg := fmt.Sprintf("keywords: %s ... (%d total)", strings.Join(preview, ", "), len(e.Keywords))
		if e.Fallback {
			msg += " [fallback]"
		}
		return msg
	case StageFetchDone:
		return fmt.Sprintf("fetched %d candidates from %s in %s", e.Count, e.URL, e.Dur.Round(time.Millisecond))
	case StageFetchError:
		return fmt.Sprintf("fetch failed: %s; retrying in %s", e.Note, e.Dur)
	case StageHit:
		return fmt.Sprintf("hit [%s] %s", e.Keyword, e.Title)
	case StageNotifySent:
		return "sent: " + e.Title
	case StageNotifyError:
		return fmt.Sprintf("send failed for %q: %s", e.Title, e.Note)
	default:
		return string(e.Stage)
	}
}
