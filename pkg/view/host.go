// Package view connects loaded call trees to the user interface of the
// surrounding application. The application provides the host capabilities,
// this package decides what is shown and reacts to user input.
package view

// Commands posted by the tree page.
const (
	CommandOpen         = "open"
	CommandChangeMetric = "changeMetric"
	CommandExportData   = "exportData"
)

// Message is posted by rendered content to its host.
type Message struct {
	Command string `json:"command"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
	Metric  string `json:"metric,omitempty"`
}

// PanelHandle identifies a panel opened by a PanelHost.
type PanelHandle int

// PanelHost displays HTML content and delivers the messages it posts.
type PanelHost interface {
	// OpenPanel shows a new panel with the given content.
	OpenPanel(content []byte) (PanelHandle, error)
	// SetContent replaces the content of an open panel.
	SetContent(h PanelHandle, content []byte) error
	// OnMessage registers the handler for messages posted by the panel.
	OnMessage(h PanelHandle, handler func(Message))
	// Dispose closes the panel.
	Dispose(h PanelHandle) error
}

// TreeViewHost displays items provided by a TreeDataProvider.
type TreeViewHost interface {
	// NotifyChanged tells the host to request all items again.
	NotifyChanged()
}

// SourceOpener shows a source file to the user.
type SourceOpener interface {
	// OpenSource opens path with the cursor on the 1-based line. A line of 0
	// leaves the cursor position to the host.
	OpenSource(path string, line int) error
}

// SaveDialog asks the user where to save a file.
type SaveDialog interface {
	// SaveLocation returns the chosen path. ok is false if the user
	// cancelled.
	SaveLocation() (path string, ok bool, err error)
}

// ErrorReporter shows error messages to the user.
type ErrorReporter interface {
	ShowError(msg string)
}
