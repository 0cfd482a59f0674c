package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"codeberg.org/mutker/virtualdyno/internal/errors"
)

// CheckMonotonic verifies the strictly-increasing timestamp contract
// and that no sample carries a non-finite channel value. An empty
// sequence passes; absence of telemetry is a run-level rejection, not
// an input error.
func CheckMonotonic(samples []Sample) error {
	errFactory := errors.New()

	for i, s := range samples {
		if !finiteSample(s) {
			return errFactory.WithMessage(ErrInvalidSampleValue,
				fmt.Sprintf("sample %d carries a NaN or infinite channel value", i))
		}
		if i == 0 {
			continue
		}
		if s.TimestampSec <= samples[i-1].TimestampSec {
			return errFactory.WithMessage(ErrNonMonotonicTime,
				fmt.Sprintf("sample %d timestamp %.6fs does not increase past %.6fs",
					i, s.TimestampSec, samples[i-1].TimestampSec))
		}
	}

	return nil
}

func finiteSample(s Sample) bool {
	values := []float64{
		s.TimestampSec, s.EngineRPM, s.SpeedMps, s.ThrottlePct,
		s.BoostKPa, s.AirFuelRatio, s.IgnitionTimingDeg,
		s.EngineLoadPct, s.IntakeTempC, s.CoolantTempC,
	}
	if s.RPMRate != nil {
		values = append(values, *s.RPMRate)
	}

	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// Validate checks the sequence's provenance tag and timestamp contract.
func (q Sequence) Validate() error {
	errFactory := errors.New()

	switch q.Source {
	case SourceLive, SourceSimulated:
	default:
		return errFactory.WithData(ErrUnknownSource, string(q.Source))
	}

	return CheckMonotonic(q.Samples)
}

// LoadSamples reads a sample log exported by the acquisition
// collaborator: a JSON document with a "source" tag and a "samples"
// array. The sequence is validated before it is returned.
func LoadSamples(path string) (Sequence, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return Sequence{}, errFactory.Wrap(ErrOpenSampleLog, err)
	}

	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return Sequence{}, errFactory.Wrap(ErrParseSampleLog, err)
	}
	if seq.Source == "" {
		seq.Source = SourceLive
	}

	if err := seq.Validate(); err != nil {
		return Sequence{}, err
	}

	return seq, nil
}
