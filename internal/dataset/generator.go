package dataset

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "gctidash/internal/errors"
	"gctidash/pkg/contracts/domain"
)

const (
	DefaultNEvents            = 2500
	DefaultSeed               = 42
	DefaultTrailingWindowDays = 180
	MaxNEvents                = 1000000

	authorizedProbability = 0.95
	idPrefix              = "INC-"
	idHexLen              = 8
)

// priorityWeights are cumulative in Priorities() order: High 0.25, Medium 0.45, Low 0.30
var priorityWeights = [...]float64{0.25, 0.70, 1.0}

// Options controls dataset generation
type Options struct {
	NEvents            int `validate:"gte=0,lte=1000000"`
	Seed               uint64
	TrailingWindowDays int `validate:"gt=0,lte=3660"`
	Anchor             time.Time
}

// DefaultOptions returns the default options anchored at anchor
func DefaultOptions(anchor time.Time) Options {
	return Options{
		NEvents:            DefaultNEvents,
		Seed:               DefaultSeed,
		TrailingWindowDays: DefaultTrailingWindowDays,
		Anchor:             anchor,
	}
}

var optionsValidator = validator.New()

// Validate checks the option ranges
func (o Options) Validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid dataset options: %v", err))
	}
	if o.Anchor.IsZero() {
		return apperrors.NewAppValidationError("invalid dataset options: anchor date is required")
	}
	return nil
}

// Generate builds NEvents incidents from a stream seeded with Seed.
//
// For every row the draws happen in a fixed order: priority, resolution
// minutes, authorization, event type, risk (a second draw only for
// unauthorized changes), registration date and identifier.
func Generate(opts Options) (*Dataset, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	anchor := truncateToDay(opts.Anchor)
	opts.Anchor = anchor

	src := rand.NewChaCha8(seedBytes(opts.Seed))
	rng := rand.New(src)

	nonCompliance := domain.NonComplianceEvents()
	operational := domain.OperationalEvents()
	seen := make(map[string]struct{}, opts.NEvents)

	incidents := make([]domain.Incident, 0, opts.NEvents)
	for range opts.NEvents {
		priority := drawPriority(rng)

		lo, hi := priority.ResolutionRange()
		minutes := round2(lo + rng.Float64()*(hi-lo))

		authorized := 0
		if rng.Float64() < authorizedProbability {
			authorized = 1
		}

		var eventType string
		var risk domain.Risk
		if authorized == 1 {
			eventType = operational[rng.IntN(len(operational))]
			risk = priority.Risk()
		} else {
			eventType = nonCompliance[rng.IntN(len(nonCompliance))]
			risk = [...]domain.Risk{domain.RiskCritical, domain.RiskHigh}[rng.IntN(2)]
		}

		offset := rng.IntN(opts.TrailingWindowDays)
		registered := anchor.AddDate(0, 0, offset-opts.TrailingWindowDays)

		id, err := nextID(src, seen)
		if err != nil {
			return nil, err
		}

		incidents = append(incidents, domain.Incident{
			ID:                 id,
			Priority:           priority,
			ResolutionMinutes:  minutes,
			EventType:          eventType,
			IsAuthorizedChange: authorized,
			RiskCriticality:    risk,
			MaturityLevel:      domain.MaturityLevelTarget,
			RegistrationDate:   registered,
		})
	}

	return &Dataset{options: opts, incidents: incidents}, nil
}

func drawPriority(rng *rand.Rand) domain.Priority {
	u := rng.Float64()
	priorities := domain.Priorities()
	for i, w := range priorityWeights {
		if u < w {
			return priorities[i]
		}
	}
	return priorities[len(priorities)-1]
}

// nextID draws identifiers until one has not been handed out yet
func nextID(src *rand.ChaCha8, seen map[string]struct{}) (string, error) {
	for {
		u, err := uuid.NewRandomFromReader(src)
		if err != nil {
			return "", fmt.Errorf("draw incident id: %w", err)
		}
		id := idPrefix + strings.ToUpper(hex.EncodeToString(u[:idHexLen/2]))
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		return id, nil
	}
}

func seedBytes(seed uint64) [32]byte {
	var b [32]byte
	binary.LittleEndian.PutUint64(b[:8], seed)
	return b
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
