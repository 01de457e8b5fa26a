package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// DocumentType selects which instruction template wraps the collected files.
type DocumentType string

const (
	// DocumentTypeReadme produces a project README.
	DocumentTypeReadme DocumentType = "readme"
	// DocumentTypeBlog produces a blog post about the project.
	DocumentTypeBlog DocumentType = "blog"
	// DocumentTypeWriteup produces a scholarly write-up.
	DocumentTypeWriteup DocumentType = "writeup"
)

// ErrUnknownDocumentType reports a document type outside the supported set.
var ErrUnknownDocumentType = errors.New("unknown document type")

var documentTypeAliases = map[string]DocumentType{
	"readme":    DocumentTypeReadme,
	"blog":      DocumentTypeBlog,
	"post":      DocumentTypeBlog,
	"writeup":   DocumentTypeWriteup,
	"write-up":  DocumentTypeWriteup,
	"paper":     DocumentTypeWriteup,
	"scholarly": DocumentTypeWriteup,
}

// DocumentTypes lists every supported type in presentation order.
func DocumentTypes() []DocumentType {
	return []DocumentType{DocumentTypeReadme, DocumentTypeBlog, DocumentTypeWriteup}
}

// ParseDocumentType resolves a case-insensitive name or alias.
func ParseDocumentType(value string) (DocumentType, error) {
	documentType, known := documentTypeAliases[strings.ToLower(strings.TrimSpace(value))]
	if !known {
		return "", fmt.Errorf("%w %q", ErrUnknownDocumentType, value)
	}
	return documentType, nil
}

func (documentType DocumentType) String() string {
	return string(documentType)
}
