package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

const classificationPrompt = `You are an image classifier for collectible objects.
Name what the photo shows using short ImageNet-style labels (for example: vase, coin, teapot, envelope, doll, radio, comic book).
Return strict JSON: {"labels":[{"label":string,"score":number from 0 to 1}]} with at most 5 labels, best first.
No markdown, no extra keys.`

var languageNames = map[string]string{
	"eng": "English",
	"swe": "Swedish",
	"deu": "German",
	"fra": "French",
	"fin": "Finnish",
	"nor": "Norwegian",
	"dan": "Danish",
}

func buildOCRPrompt(settings domain.OCRSettings) string {
	langs := make([]string, 0, len(settings.Languages))
	for _, code := range settings.Languages {
		if name, ok := languageNames[code]; ok {
			langs = append(langs, name)
			continue
		}
		langs = append(langs, code)
	}

	layout := "Text may be laid out in paragraphs."
	if settings.SegmentationMode == "sparse_text" {
		layout = "Text is sparse: small print, stamps, labels and marks scattered over a physical object. Report every fragment."
	}

	return fmt.Sprintf(`Read all printed or handwritten text in the photo. Languages: %s.
%s
Only use these characters: %s
Return strict JSON: {"text":string,"confidence":number 0-100,"words":[{"text":string,"confidence":number 0-100,"bbox":{"x0":int,"y0":int,"x1":int,"y1":int}}]}.
Handwriting you are unsure about gets a low confidence. No markdown, no extra keys.`,
		strings.Join(langs, ", "), layout, settings.CharWhitelist)
}
