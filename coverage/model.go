package coverage

import (
	"encoding/json"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
)

// TileAvailabilityMap is the complete built artifact in its serialized
// (structural) form: the zoom band, the dataset table, an optional base
// dataset and the row-encoded levels covering zoom zbase+1 .. zmax. The
// encoded deltas are plain integers in the structure, there is no bit-level
// framing. The structure is immutable once built or decoded.
type TileAvailabilityMap struct {
	Format   string         `validate:"required" json:"format"`
	// ZBase can be -1 when the lowest max zoom in the inventory is 0 and
	// nothing covers the whole world.
	ZBase    int            `validate:"gte=-1" json:"zbase"`
	ZMax     int            `validate:"gte=0" json:"zmax"`
	Datasets []DatasetEntry `json:"-"`
	// Base indexes the dataset assumed to cover everything at ZBase, nil means none.
	Base   *int    `json:"base"`
	Levels []Level `json:"levels"`
}

// Level carries one zoom level's row-encoded interval array. An empty Rows
// array is a level without coverage.
type Level struct {
	Zoom int   `validate:"gte=0" json:"zoom"`
	Rows []int `json:"rows"`
}

func (m *TileAvailabilityMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TileAvailabilityMap                // not a pointer, because it would cause recursion to this function
		SpecialDatasets     []DatasetEntry `json:"datasets"`
	}{
		TileAvailabilityMap: *m,
		SpecialDatasets:     m.Datasets,
	})
}

func (m *TileAvailabilityMap) UnmarshalJSON(data []byte) error {
	err := defaults.Set(m)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, m, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	rawDatasets, ok := specials["datasets"]
	if !ok {
		return fmt.Errorf(`missing key "datasets"`)
	}
	m.Datasets, err = unmarshalDatasets(rawDatasets)
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(m)
}

func unmarshalDatasets(rawDatasets interface{}) ([]DatasetEntry, error) {
	rawList, ok := rawDatasets.([]interface{})
	if !ok {
		return nil, fmt.Errorf(`"datasets" should be an array`)
	}
	entries := make([]DatasetEntry, len(rawList))
	for i, rawEntry := range rawList {
		if err := entries[i].UnmarshalJSONFromMap(rawEntry); err != nil {
			return nil, fmt.Errorf("dataset %d: %w", i, err)
		}
	}
	return entries, nil
}

// DatasetEntry identifies one coverage source. An entry is either a bare name
// or a name with arbitrary metadata; on the wire the former is a plain string
// and the latter an object (oneOf). The core only ever handles the table
// index, entries are resolved at the boundary.
type DatasetEntry struct {
	Name     string
	Metadata map[string]interface{}
}

// NamedDataset makes a metadata-less entry.
func NamedDataset(name string) DatasetEntry {
	return DatasetEntry{Name: name}
}

func (e DatasetEntry) MarshalJSON() ([]byte, error) {
	if len(e.Metadata) == 0 {
		return json.Marshal(e.Name)
	}
	obj := make(map[string]interface{}, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		obj[k] = v
	}
	obj["name"] = e.Name
	return json.Marshal(obj)
}

func (e *DatasetEntry) UnmarshalJSON(data []byte) error {
	var raw interface{}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	return e.UnmarshalJSONFromMap(raw)
}

func (e *DatasetEntry) UnmarshalJSONFromMap(data interface{}) error {
	switch v := data.(type) {
	case string:
		e.Name = v
		e.Metadata = nil
	case map[string]interface{}:
		rawName, ok := v["name"]
		if !ok {
			return fmt.Errorf(`dataset object is missing "name"`)
		}
		name, ok := rawName.(string)
		if !ok {
			return fmt.Errorf(`dataset name is not a string but a %T`, rawName)
		}
		e.Name = name
		e.Metadata = nil
		for key, val := range v {
			if key == "name" {
				continue
			}
			if e.Metadata == nil {
				e.Metadata = make(map[string]interface{}, len(v)-1)
			}
			e.Metadata[key] = val
		}
	default:
		return fmt.Errorf(`dataset entry is not a string or an object but a %T`, data)
	}
	if e.Name == "" {
		return fmt.Errorf("dataset name is empty")
	}
	return nil
}
