package models

// ImagePlaceholder is what a conversation preview shows when the latest
// message is an image. List views never render the raw image path.
const ImagePlaceholder = "[Image]"

// previewLimit caps the denormalized preview text stored on a conversation.
const previewLimit = 100

// PreviewText computes the denormalized last-message preview: the fixed
// placeholder when an image is attached, otherwise the content truncated
// to 100 characters. Truncation counts runes, not bytes — cutting a UTF-8
// sequence in half would corrupt the preview.
func PreviewText(content, imageURL string) string {
	if imageURL != "" {
		return ImagePlaceholder
	}
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit])
}
