package gemini

import "fmt"

// scriptSchema constrains the text model to a title plus the scene
// paragraphs, so the response parses without prose cleanup.
const scriptSchema = `{
  "type": "OBJECT",
  "properties": {
    "title": {"type": "STRING", "description": "The video title."},
    "paragraphs": {
      "type": "ARRAY",
      "items": {"type": "STRING", "description": "One short scene of the script."},
      "description": "The script split into scenes. Must have exactly 8 scenes."
    }
  },
  "required": ["title", "paragraphs"]
}`

type scriptStyle struct {
	context string // fmt string taking the user topic
	rules   string
}

var scriptStyles = map[string]scriptStyle{
	"biblical": {
		context: `CONTEXT: The user wants a children's Bible story based on the input: %q.`,
		rules: `
1. If the user typed a title (e.g. "Noah's Ark"), tell that story.
2. If the user typed a VALUE or LESSON (e.g. "Faith"), automatically pick a Bible story that exemplifies it.
3. Use simple, educational language suitable for children.
4. The JSON response must have EXACTLY 8 items in the 'paragraphs' array.
5. Each paragraph must be short (2-3 sentences).
6. The title must be the name of the Bible story.
7. The last (8th) scene MUST be a friendly goodbye from the narrator.`,
	},
	"finance": {
		context: `CONTEXT: The user wants a YouTube video script about Finance and Investing, based on the topic: %q.`,
		rules: `
1. Write a clear, didactic script for a beginner audience.
2. The tone must be trustworthy, objective and encouraging.
3. The JSON response must have EXACTLY 8 items in the 'paragraphs' array.
4. Each paragraph must be one tip, step, or key point of the topic.
5. The title must be catchy and search-friendly, like "5 Tips to..." or "The Definitive Guide to...".
6. The last (8th) scene MUST be a clear call to action, like "Enjoyed the video? Leave a like and subscribe for more tips!".`,
	},
	"personal_dev": {
		context: `CONTEXT: The user wants a motivational video script about Personal Development, based on the theme: %q.`,
		rules: `
1. Write an inspiring, practical script.
2. Use powerful, positive language. Philosophies like Stoicism may be cited when they fit.
3. The JSON response must have EXACTLY 8 items in the 'paragraphs' array.
4. Each paragraph must explore one facet of the theme, offering reflection or a practical action.
5. The title must be strong and spark curiosity.
6. The last (8th) scene MUST be a final message of encouragement and an invitation to share experiences in the comments.`,
	},
	"tech": {
		context: `CONTEXT: The user wants a script for a Technology review or guide video, focused on: %q.`,
		rules: `
1. Write an informative, direct script explaining features, pros and cons.
2. The tone is that of an approachable expert.
3. The JSON response must have EXACTLY 8 items in the 'paragraphs' array.
4. Structure the script logically: intro, main features, strengths, weaknesses, conclusion.
5. The title must be clear and specific (e.g. "Full Review of [Product]").
6. The last (8th) scene MUST be a summary and final recommendation, asking the audience's opinion in the comments.`,
	},
	"curiosities": {
		context: `CONTEXT: The user wants a script for a video about curiosities or little-known facts on: %q. The goal is to go viral.`,
		rules: `
1. Write a fast, surprising, captivating script.
2. Use punchy sentences and hooks to keep the viewer engaged.
3. The JSON response must have EXACTLY 8 items in the 'paragraphs' array, each one a fact or part of a mystery.
4. The title must be wholesome clickbait that sparks strong curiosity (e.g. "You Won't Believe What...").
5. The last (8th) scene MUST be a question to the audience encouraging engagement, like "Which fact shocked you most? Comment below!".`,
	},
	"spirituality": {
		context: `CONTEXT: The user wants a script for a Prayer or Spirituality video about: %q.`,
		rules: `
1. Write a serene, comforting text suitable for meditation or guided prayer.
2. The tone must be calm, respectful and peaceful.
3. The JSON response must have EXACTLY 8 items in the 'paragraphs' array.
4. The paragraphs must flow gently, building an atmosphere of peace.
5. The title must be simple and direct, like "Morning Prayer for Gratitude".
6. The last (8th) scene MUST be a final message of peace and blessings.`,
	},
}

func scriptPrompt(topic, niche string) string {
	style, ok := scriptStyles[niche]
	if !ok {
		style = scriptStyles["curiosities"]
	}
	return fmt.Sprintf(style.context, topic) + "\n\nGENERATION RULES:\n" + style.rules
}

type imageStyle struct {
	scene    string // fmt string taking the paragraph text
	farewell string
}

var imageStyles = map[string]imageStyle{
	"biblical": {
		scene:    `Create a soft, colorful Disney/Pixar-style digital illustration for a children's Bible story. The scene must match EXACTLY this text: %q. Style: soft 3D render, magical lighting, vibrant but gentle colors.`,
		farewell: `Create a soft, colorful Disney/Pixar-style digital illustration of a happy child or friendly biblical character (like a little angel) waving goodbye. The image should be warm and cute.`,
	},
	"finance": {
		scene:    `Create a clean, modern 3D-infographic-style image for a finance video. The scene must illustrate the concept of %q. Use finance icons (dollar signs, charts, piggy banks) and a blue, green and white palette.`,
		farewell: `Create a clean, modern end-screen image for a finance video, with large clear "Like" (thumbs up) and "Subscribe" (notification bell) icons and a growth chart in the background.`,
	},
	"personal_dev": {
		scene:    `Create a symbolic, inspiring image for a personal development video about %q. Use visual metaphors (a person climbing a mountain, a sprouting seed, a brain with gears). Concept-art style with dramatic lighting.`,
		farewell: `Create an inspiring image with a motivational quote in elegant typography over a serene background (sunset, mountain). The text in the image must read: "Keep growing".`,
	},
	"tech": {
		scene:    `Create a high-quality, realistic, techy image illustrating: %q. It can be a gadget close-up, a person using the device, or an abstract software visual. Clean background, studio lighting.`,
		farewell: `Create an end-screen image for a tech channel showing the reviewed product front and center with social media icons and the text "Follow us for more reviews!".`,
	},
	"curiosities": {
		scene:    `Create a vibrant, intriguing image illustrating the fact: %q. Digital collage, photorealism or concept art that sparks the viewer's curiosity. Strong colors, dynamic composition.`,
		farewell: `Create an image with a large question mark in the center, surrounded by icons of mystery and science (magnifying glass, DNA, pyramid, planet). The text in the image must read "What do you want to discover next?".`,
	},
	"spirituality": {
		scene:    `Create a serene, ethereal image to accompany a prayer or meditation about %q. Use soft light, sun rays, candles, calm nature (still water, starry sky). The style should be gentle, almost dreamlike.`,
		farewell: `Create an image of a peace symbol (dove, praying hands, lotus flower) emitting a soft light over a celestial background. The image must convey calm and serenity.`,
	},
}

func imagePrompt(paragraph string, finalScene bool, niche string) string {
	style, ok := imageStyles[niche]
	if !ok {
		style = imageStyles["curiosities"]
	}
	var prompt string
	if finalScene {
		prompt = style.farewell
	} else {
		prompt = fmt.Sprintf(style.scene, paragraph)
	}
	return prompt + ` RULES: Do NOT include ANY text in the image unless explicitly requested. Wide 16:9 format. High quality.`
}
