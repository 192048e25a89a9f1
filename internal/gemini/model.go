package gemini

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                      |
// |-----------------------------|-----------------------------|-------------------------------|
// | Gemini 3.1 Pro (Preview)    | gemini-3.1-pro-preview      | Most thorough critiques       |
// | Gemini 3 Flash (Preview)    | gemini-3-flash-preview      | Default critique model        |
// | Gemini 2.5 Pro              | gemini-2.5-pro              | Stable, high-reasoning        |
// | Gemini 2.5 Flash            | gemini-2.5-flash            | Stable, balanced              |
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview  | Default edit model            |
// | Gemini 2.5 Flash Image      | gemini-2.5-flash-image      | Faster, cheaper edits         |
const (
	ModelGemini31ProPreview   = "gemini-3.1-pro-preview"
	ModelGemini3FlashPreview  = "gemini-3-flash-preview"
	ModelGemini25Pro          = "gemini-2.5-pro"
	ModelGemini25Flash        = "gemini-2.5-flash"
	ModelGemini3ProImage      = "gemini-3-pro-image-preview"
	ModelGemini25FlashImage   = "gemini-2.5-flash-image"
	DefaultAnalysisModel      = ModelGemini3FlashPreview
	DefaultImageModel         = ModelGemini3ProImage
	responseMIMETypeJSON      = "application/json"
	modalityText              = "TEXT"
	modalityImage             = "IMAGE"
	maxLoggedResponseFragment = 200
)
