package domain

import (
	"strings"
	"time"
)

// University holds the institution details printed on exported cover pages.
type University struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Pincode    string `json:"pincode"`
	Department string `json:"department"`
}

// Profile is the student information a user must fill in before creating
// lab jobs. Complete is derived, never set directly by clients.
type Profile struct {
	FullName   string     `json:"full_name"`
	RollNumber string     `json:"roll_number"`
	Course     string     `json:"course"`
	Semester   string     `json:"semester"`
	Section    string     `json:"section"`
	University University `json:"university"`
	Complete   bool       `json:"complete"`
}

// RequiredFilled reports whether every mandatory profile field is present.
func (p *Profile) RequiredFilled() bool {
	required := []string{
		p.FullName, p.RollNumber, p.Course, p.Semester,
		p.University.Name, p.University.Department,
	}
	for _, f := range required {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// User owns lab jobs and carries the encrypted LLM provider credential.
// APIKeyEncrypted is an "enc:" prefixed AES-256-GCM ciphertext; it is never
// returned by the API unmasked.
type User struct {
	ID               UserID    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Profile          Profile   `json:"profile"`
	APIKeyEncrypted  string    `json:"-"`
	ReportsGenerated int       `json:"reports_generated"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
