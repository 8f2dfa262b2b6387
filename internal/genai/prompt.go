package genai

import "fmt"

// buildPrompt derives the analysis prompt from the media kind and the
// optional caption/filename context that came with the message.
func buildPrompt(req Request) string {
	switch req.Kind {
	case KindImage:
		if req.Caption != "" {
			return fmt.Sprintf("The sender captioned this image %q. Describe the image with the caption in mind and answer anything the caption asks.", req.Caption)
		}
		return "Describe this image in detail."
	case KindVideo:
		if req.Caption != "" {
			return fmt.Sprintf("The sender captioned this video %q. Describe what happens in the video with the caption in mind and answer anything the caption asks.", req.Caption)
		}
		return "Describe what happens in this video."
	case KindDocument:
		name := req.Filename
		if name == "" {
			name = "the attached document"
		}
		return fmt.Sprintf("Summarize the document %q in four parts: the topic, the key points, the important details, and the conclusion.", name)
	case KindAudio:
		return "Process this audio in three parts: a transcription, a short summary, and the tone of the speaker."
	}
	return "Describe this content."
}
