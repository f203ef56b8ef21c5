package dbmodels

import "time"

// Rows below belong to the entity catalog. The approval engine only reads them
// to render a title and a short preview.

type FormSubmission struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	ProjectID   string `gorm:"type:varchar(36)"`
	Name        string
	Description string
	SubmittedBy string `gorm:"type:varchar(36)"`
	CreatedAt   time.Time
}

func (FormSubmission) TableName() string {
	return "form_submissions"
}

type SiteDiary struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	ProjectID string `gorm:"type:varchar(36)"`
	Name      string
	Date      time.Time
	Weather   string
	Summary   string
	CreatedBy string `gorm:"type:varchar(36)"`
	CreatedAt time.Time
}

func (SiteDiary) TableName() string {
	return "site_diaries"
}

type Task struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	ProjectID   string `gorm:"type:varchar(36)"`
	Title       string
	Description string
	Status      string
	AssigneeID  string `gorm:"type:varchar(36)"`
	DueDate     *time.Time
	CreatedAt   time.Time
}

func (Task) TableName() string {
	return "tasks"
}

type Entry struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	ProjectID string `gorm:"type:varchar(36)"`
	Title     string
	Body      string
	Kind      string
	CreatedAt time.Time
}

func (Entry) TableName() string {
	return "entries"
}
