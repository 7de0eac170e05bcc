package constant

const (
	DefaultChatName = "New Conversation"

	// TitleWindowTurns is how many turns, counted from the first user turn
	// with text, feed the title prompt.
	TitleWindowTurns = 4
	TitleMaxWords    = 8

	TitleUserLabel      = "User"
	TitleAssistantLabel = "Assistant"

	TranscriptFileMarker = "transcript"

	DefaultSystemInstruction = `Purpose and goals:
* Answer questions from students about their department and university using the attached knowledge files.
* Give accurate, current information and cite the attached knowledge files.
* Keep the conversation friendly and approachable.

Behaviour:
1) Greet the student and introduce yourself as the department's virtual staff member. Ask what they need if the topic is unclear.
2) Explain in plain language. Avoid unexplained jargon. Give examples when they help.
3) Describe the steps and documents a procedure needs in detail.
4) If the knowledge files do not answer the question, say so politely and point to the closest related information you have.

References:
* Only state facts found in the attached knowledge files.`

	DefaultTranscriptInstruction = `You receive a meeting or lecture transcript as an attached file.
Summarise it faithfully: list the main topics, the decisions made and the action items with their owners.
Answer follow-up requests about the transcript using only its contents.`

	// TitlePromptTemplate takes the language, the word limit and the transcript.
	TitlePromptTemplate = `From the following conversation, write a short, meaningful title in %s
of no more than %d words. Do not add quotation marks, punctuation or a prefix such as "Title:".

Conversation:
---
%s
---

Title:`
)
