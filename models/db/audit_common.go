package dbmodels

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"
)

type EntityChanges struct {
	Description string         `json:"description"`
	Data        []FieldChanges `json:"data"`
}

type FieldChanges struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

func (j EntityChanges) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *EntityChanges) Scan(value any) error {
	switch data := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(data, j)
	case string:
		return json.Unmarshal([]byte(data), j)
	}
	return errors.Errorf("unsupported EntityChanges value type %T", value)
}

func ApproverChanges(description string, added, removed []string) EntityChanges {
	changes := EntityChanges{Description: description}
	if len(added) > 0 {
		changes.Data = append(changes.Data, FieldChanges{Field: "approvers", NewValue: added})
	}
	if len(removed) > 0 {
		changes.Data = append(changes.Data, FieldChanges{Field: "approvers", OldValue: removed})
	}
	return changes
}
