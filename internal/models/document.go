package models

// Document kinds recognized by the extension.
const (
	DocumentKindTerms    = "terms"
	DocumentKindPrivacy  = "privacy"
	DocumentKindContract = "contract"
	DocumentKindEULA     = "eula"
	DocumentKindOther    = "other"
)

// DocumentModel stores the extracted text of a legal document submitted for
// analysis. Hash is the sha256 of the normalized text; the same document
// resubmitted by the same user reuses the existing row.
type DocumentModel struct {
	Base
	UserID    string `json:"user_id"    gorm:"not null;index:idx_documents_user_hash,unique"`
	Hash      string `json:"hash"       gorm:"not null;size:64;index:idx_documents_user_hash,unique"`
	Title     string `json:"title"      gorm:"not null"`
	SourceURL string `json:"source_url"`
	Kind      string `json:"kind"       gorm:"index;default:'other'"`
	Text      string `json:"text"       gorm:"type:longtext"`
	WordCount int    `json:"word_count"`
}

func (DocumentModel) TableName() string { return "documents" }
