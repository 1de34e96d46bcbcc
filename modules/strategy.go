package modules

import (
	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/cull/modules/simple"
	"github.com/aukilabs/cull/modules/spatialhash"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	StrategyHash   = "hash"
	StrategySimple = "simple"
)

// Config describes a culler independently of its strategy. Options that do
// not apply to the chosen strategy are ignored.
type Config struct {
	Strategy         string
	CellSize         float64
	SimpleTest       bool
	DirtyTest        bool
	ManualUpdate     bool
	Unresolved       models.UnresolvedPolicy
	IncrementalReset bool
}

// DefaultConfig returns the config of a spatial hash with its default options.
func DefaultConfig() Config {
	opts := spatialhash.DefaultOptions()

	return Config{
		Strategy:   StrategyHash,
		CellSize:   opts.CellSize,
		SimpleTest: opts.SimpleTest,
		DirtyTest:  opts.DirtyTest,
	}
}

// New creates the culler described by conf. It returns an error of type
// models.ErrTypeInvalidConfiguration when the strategy is unknown or its
// options are invalid.
func New(conf Config) (Culler, error) {
	switch conf.Strategy {
	case StrategyHash:
		h, err := spatialhash.New(spatialhash.Options{
			CellSize:         conf.CellSize,
			SimpleTest:       conf.SimpleTest,
			DirtyTest:        conf.DirtyTest,
			ManualUpdate:     conf.ManualUpdate,
			Unresolved:       conf.Unresolved,
			IncrementalReset: conf.IncrementalReset,
		})
		if err != nil {
			return nil, err
		}
		return h, nil

	case StrategySimple:
		return simple.New(simple.Options{
			DirtyTest:    conf.DirtyTest,
			ManualUpdate: conf.ManualUpdate,
			Unresolved:   conf.Unresolved,
		}), nil

	default:
		return nil, errors.New("unknown culling strategy").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("strategy", conf.Strategy)
	}
}
