// Package prompt turns a collected FileMap into the instruction sent to the model.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/mod/modfile"

	"github.com/temirov/docsmith/internal/types"
)

const (
	goModFileName        = "go.mod"
	fileHeaderFormat     = "===== %s =====\n"
	errorRenderFormat    = "render %s prompt: %w"
	noPrefaceInstruction = "Respond with the document only. Do not add any introduction, preface, acknowledgement of these instructions, or closing remarks."
)

// Metadata describes the project beyond its file contents.
type Metadata struct {
	ProjectName string
	ModulePath  string
}

type templateData struct {
	Metadata
	Files       string
	NoPreface   string
	FileCount   int
	HasMetadata bool
}

var documentTemplates = map[DocumentType]*template.Template{
	DocumentTypeReadme: template.Must(template.New(string(DocumentTypeReadme)).Parse(
		`You are an experienced maintainer writing the README.md for the software project below.
{{template "metadata" .}}Using the {{.FileCount}} project files that follow, write a complete README in Markdown. Cover what the project does, how to install and build it, how to use it with concrete examples, how it is configured, and how to contribute. Describe only behavior that the files support.
{{.NoPreface}}

Project files:
{{.Files}}`)),
	DocumentTypeBlog: template.Must(template.New(string(DocumentTypeBlog)).Parse(
		`You are a technical writer publishing a blog post about the software project below.
{{template "metadata" .}}Read the {{.FileCount}} project files that follow and write an engaging blog post in Markdown for developers. Explain the problem the project solves, walk through its most interesting design decisions and code, and close with how readers can try it. Keep the tone conversational and the technical details accurate.
{{.NoPreface}}

Project files:
{{.Files}}`)),
	DocumentTypeWriteup: template.Must(template.New(string(DocumentTypeWriteup)).Parse(
		`You are a researcher preparing a scholarly write-up of the software system below.
{{template "metadata" .}}Based on the {{.FileCount}} source files that follow, write a formal paper in Markdown with an abstract, introduction, system design, implementation, evaluation considerations, related work, and conclusion. Use precise academic language and ground every claim in the provided code.
{{.NoPreface}}

Source files:
{{.Files}}`)),
}

func init() {
	const metadataTemplate = `{{define "metadata"}}{{if .HasMetadata}}{{if .ProjectName}}Project name: {{.ProjectName}}
{{end}}{{if .ModulePath}}Module path: {{.ModulePath}}
{{end}}{{end}}{{end}}`
	for _, documentTemplate := range documentTemplates {
		template.Must(documentTemplate.Parse(metadataTemplate))
	}
}

// Build renders the prompt for documentType around the serialized files.
func Build(files types.FileMap, documentType DocumentType, metadata Metadata) (string, error) {
	documentTemplate, known := documentTemplates[documentType]
	if !known {
		return "", fmt.Errorf("%w %q", ErrUnknownDocumentType, string(documentType))
	}
	if metadata.ModulePath == "" {
		metadata.ModulePath = ModulePath(files)
	}
	data := templateData{
		Metadata:    metadata,
		Files:       SerializeFiles(files),
		NoPreface:   noPrefaceInstruction,
		FileCount:   len(files),
		HasMetadata: metadata.ProjectName != "" || metadata.ModulePath != "",
	}
	var builder strings.Builder
	if renderError := documentTemplate.Execute(&builder, data); renderError != nil {
		return "", fmt.Errorf(errorRenderFormat, documentType, renderError)
	}
	return builder.String(), nil
}

// SerializeFiles renders every entry as a delimited path header followed by its content, in FileMap order.
func SerializeFiles(files types.FileMap) string {
	var builder strings.Builder
	for _, entry := range files {
		fmt.Fprintf(&builder, fileHeaderFormat, entry.Path)
		builder.WriteString(entry.Content)
		if !strings.HasSuffix(entry.Content, "\n") {
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}
	return builder.String()
}

// ModulePath returns the module path declared by a root-level go.mod in files, if any.
func ModulePath(files types.FileMap) string {
	content, found := files.Lookup(goModFileName)
	if !found {
		return ""
	}
	return modfile.ModulePath([]byte(content))
}
