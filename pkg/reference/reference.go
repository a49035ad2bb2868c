package reference

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

var ErrCarNumMismatch = errors.New("car number does not match key")

// LoadFile reads reference data from a yaml (or json) file.
func LoadFile(path string) (*model.ReferenceData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*model.ReferenceData, error) {
	var ret model.ReferenceData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ret); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := normalize(&ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// FromDrivers builds reference data from a list of driver entries.
func FromDrivers(drivers []model.DriverReference) *model.ReferenceData {
	ret := Empty()
	for i := range drivers {
		ret.Drivers[drivers[i].CarNum] = drivers[i]
	}
	return ret
}

func Empty() *model.ReferenceData {
	ret := &model.ReferenceData{}
	//nolint:errcheck // cannot fail on empty data
	normalize(ret)
	return ret
}

// normalize ensures all maps exist and every driver carries its car number.
func normalize(r *model.ReferenceData) error {
	if r.Drivers == nil {
		r.Drivers = make(map[string]model.DriverReference)
	}
	if r.IndicatorImages == nil {
		r.IndicatorImages = make(map[string]string)
	}
	if r.LeaderboardImages == nil {
		r.LeaderboardImages = make(map[string]string)
	}
	for key, d := range r.Drivers {
		switch d.CarNum {
		case "":
			d.CarNum = key
			r.Drivers[key] = d
		case key:
		default:
			return fmt.Errorf("%w: key %q, carNum %q", ErrCarNumMismatch, key, d.CarNum)
		}
	}
	return nil
}
