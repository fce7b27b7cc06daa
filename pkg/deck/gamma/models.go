package gamma

// Generation states reported by the status endpoint
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Credits reports the credits a generation consumed
type Credits struct {
	Deducted  int `json:"deducted"`
	Remaining int `json:"remaining"`
}

// TextOptions tune generated text. Tone and Audience only apply to the
// generate text mode.
type TextOptions struct {
	Amount   string `json:"amount,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Audience string `json:"audience,omitempty"`
	Language string `json:"language,omitempty"`
}

// ImageOptions select the image source and style of generated cards
type ImageOptions struct {
	Source string `json:"source,omitempty"`
	Model  string `json:"model,omitempty"`
	Style  string `json:"style,omitempty"`
}

// SharingOptions control access to the generated gamma
type SharingOptions struct {
	WorkspaceAccess string `json:"workspaceAccess,omitempty"`
	ExternalAccess  string `json:"externalAccess,omitempty"`
}

// GenerateRequest is the body of POST /generations
type GenerateRequest struct {
	InputText string `json:"inputText"`
	// TextMode is generate, condense or preserve
	TextMode               string          `json:"textMode"`
	Format                 string          `json:"format,omitempty"`
	ThemeID                string          `json:"themeId,omitempty"`
	NumCards               int             `json:"numCards,omitempty"`
	CardSplit              string          `json:"cardSplit,omitempty"`
	AdditionalInstructions string          `json:"additionalInstructions,omitempty"`
	FolderIDs              []string        `json:"folderIds,omitempty"`
	ExportAs               string          `json:"exportAs,omitempty"`
	TextOptions            *TextOptions    `json:"textOptions,omitempty"`
	ImageOptions           *ImageOptions   `json:"imageOptions,omitempty"`
	SharingOptions         *SharingOptions `json:"sharingOptions,omitempty"`
}

// TemplateRequest is the body of POST /generations/from-template
type TemplateRequest struct {
	GammaID        string          `json:"gammaId"`
	Prompt         string          `json:"prompt"`
	ThemeID        string          `json:"themeId,omitempty"`
	FolderIDs      []string        `json:"folderIds,omitempty"`
	ExportAs       string          `json:"exportAs,omitempty"`
	ImageOptions   *ImageOptions   `json:"imageOptions,omitempty"`
	SharingOptions *SharingOptions `json:"sharingOptions,omitempty"`
}

// GenerationError describes why a generation failed
type GenerationError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// GenerationStatus is the response of GET /generations/{id}
type GenerationStatus struct {
	GenerationID string           `json:"generationId"`
	Status       string           `json:"status"`
	GammaID      string           `json:"gammaId,omitempty"`
	GammaURL     string           `json:"gammaUrl,omitempty"`
	ExportURL    string           `json:"exportUrl,omitempty"`
	Credits      *Credits         `json:"credits,omitempty"`
	Error        *GenerationError `json:"error,omitempty"`
}

// Done reports whether the generation reached a final state
func (s GenerationStatus) Done() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Succeeded reports whether the generation completed
func (s GenerationStatus) Succeeded() bool {
	return s.Status == StatusCompleted
}

// Theme is a workspace or standard theme
type Theme struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	ColorKeywords []string `json:"colorKeywords"`
	ToneKeywords  []string `json:"toneKeywords"`
}

// Folder is a workspace folder
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type page[T any] struct {
	Data       []T    `json:"data"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor"`
}

type generationResponse struct {
	GenerationID string `json:"generationId"`
}

type errorResponse struct {
	Message string `json:"message"`
}
