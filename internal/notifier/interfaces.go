package notifier

// INotifier delivers operator notifications rendered from a named template.
type INotifier interface {
	NotifyFromTemplate(to string, subject string, templateName string, data any) error
}
