package dbmodels

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"
)

// DirectoryUser is a read-only row of the identity service profile table.
// Older profiles keep the name in FullName and the email inside Contacts.
type DirectoryUser struct {
	ID        string          `gorm:"type:varchar(36);primaryKey"`
	FirstName string          `gorm:"type:varchar(150)"`
	LastName  string          `gorm:"type:varchar(150)"`
	FullName  string          `gorm:"type:varchar(300)"`
	Email     string          `gorm:"type:varchar(255)"`
	Contacts  ProfileContacts `gorm:"type:jsonb"`
}

func (DirectoryUser) TableName() string {
	return "profiles"
}

// ProfileContacts is the free-form contact blob of legacy profiles.
type ProfileContacts map[string]any

func (c ProfileContacts) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	valueString, err := json.Marshal(c)
	return string(valueString), err
}

func (c *ProfileContacts) Scan(value any) error {
	switch data := value.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(data, c)
	case string:
		return json.Unmarshal([]byte(data), c)
	}
	return errors.Errorf("unsupported ProfileContacts value type %T", value)
}
