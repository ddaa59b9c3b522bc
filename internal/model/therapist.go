package model

import (
	"time"

	"github.com/google/uuid"
)

// Therapist is the account owner: an independent therapist running their own
// practice. Single role — every authenticated operation is scoped to one
// therapist.
type Therapist struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	// Document is the CPF or CNPJ used as the NFS-e issuer identity.
	Document *string `gorm:"type:varchar(20)"`
	Phone    *string `gorm:"type:varchar(30)"`
	// Digital certificate metadata. The invoice gate refuses issuance when the
	// certificate is absent or expired; the certificate itself lives with the
	// NFS-e provider.
	CertificateUploadedAt *time.Time
	CertificateExpiresAt  *time.Time
	Active                bool `gorm:"not null;default:true"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasValidCertificate reports whether an unexpired digital certificate is on
// file at the given instant.
func (t *Therapist) HasValidCertificate(now time.Time) bool {
	return t.CertificateExpiresAt != nil && t.CertificateExpiresAt.After(now)
}
