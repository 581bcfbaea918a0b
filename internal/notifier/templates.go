package notifier

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates
var templateFS embed.FS

const (
	TemplatePipelineFailure = "pipeline_failure"
	TemplateReportExported  = "report_exported"
)

// PipelineFailureData feeds the pipeline_failure template.
type PipelineFailureData struct {
	WorkerName string
	DateFor    string
	Processed  int
	Failures   []string
}

// ReportExportedData feeds the report_exported template.
type ReportExportedData struct {
	DateFor string
	Objects []string
}

func textTemplate(name string) (*texttemplate.Template, error) {
	tpl, err := texttemplate.ParseFS(templateFS, "templates/"+name+".txt")
	if err != nil {
		return nil, fmt.Errorf("unknown template %s: %w", name, err)
	}
	return tpl.Option("missingkey=error"), nil
}

func htmlTemplate(name string) (*htmltemplate.Template, error) {
	tpl, err := htmltemplate.ParseFS(templateFS, "templates/"+name+".html")
	if err != nil {
		return nil, fmt.Errorf("unknown template %s: %w", name, err)
	}
	return tpl.Option("missingkey=error"), nil
}

// RenderText renders the plain text body of a template.
func RenderText(name string, data any) (string, error) {
	tpl, err := textTemplate(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err = tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
