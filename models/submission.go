package models

import "time"

// Submission repräsentiert ein hochgeladenes Dokument samt der beiden
// erzeugten Report-Artefakte. Der Datensatz wird erst geschrieben, wenn
// alle drei Referenzen (Original, Similarity, AI) bekannt sind — eine
// teilbefüllte Submission existiert in der Datenbank nie.
type Submission struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Opaque ID, bei der Annahme des Uploads erzeugt
	SubmissionID string `json:"submission_id" gorm:"uniqueIndex;not null;size:64"`
	UserID       string `json:"user_id" gorm:"index;not null"`

	Filename  string `json:"filename" gorm:"not null"`
	MediaType string `json:"media_type"`
	ByteSize  int64  `json:"byte_size"`

	WordCount int `json:"word_count"`
	CharCount int `json:"char_count"`

	FileURL             string `json:"file_url" gorm:"type:text"`
	SimilarityReportURL string `json:"similarity_report_url" gorm:"type:text"`
	AIReportURL         string `json:"ai_report_url" gorm:"type:text"`

	SimilarityScore float64 `json:"similarity_score"`
	AIScore         float64 `json:"ai_score"`
}

// TableName gibt explizit den Tabellennamen an.
func (Submission) TableName() string {
	return "submissions"
}
