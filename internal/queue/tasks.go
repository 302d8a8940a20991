package queue

const TypeDocumentProcess = "document:process"

type DocumentProcessPayload struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
}
