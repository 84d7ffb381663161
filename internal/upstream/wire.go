package upstream

// Wire shapes for the BidiGenerateContent websocket. Field names follow the
// service's JSON casing.

type clientMessage struct {
	Setup         *setupPayload        `json:"setup,omitempty"`
	RealtimeInput *realtimeInput       `json:"realtimeInput,omitempty"`
	ClientContent *clientContent       `json:"clientContent,omitempty"`
	ToolResponse  *toolResponsePayload `json:"toolResponse,omitempty"`
}

type setupPayload struct {
	Model                    string              `json:"model"`
	GenerationConfig         generationConfig    `json:"generationConfig"`
	SystemInstruction        *content            `json:"systemInstruction,omitempty"`
	Tools                    []toolDeclarations  `json:"tools,omitempty"`
	SessionResumption        *sessionResumption  `json:"sessionResumption,omitempty"`
	ContextWindowCompression *contextCompression `json:"contextWindowCompression,omitempty"`
	InputAudioTranscription  *struct{}           `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}           `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type toolDeclarations struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type sessionResumption struct {
	Handle string `json:"handle,omitempty"`
}

type contextCompression struct {
	SlidingWindow struct{} `json:"slidingWindow"`
}

type realtimeInput struct {
	Audio *blob `json:"audio,omitempty"`
}

type clientContent struct {
	Turns        []content `json:"turns"`
	TurnComplete bool      `json:"turnComplete"`
}

type toolResponsePayload struct {
	FunctionResponses []functionResponseWire `json:"functionResponses"`
}

type functionResponseWire struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type serverMessage struct {
	SetupComplete           *struct{}         `json:"setupComplete"`
	ServerContent           *serverContent    `json:"serverContent"`
	ToolCall                *serverToolCall   `json:"toolCall"`
	SessionResumptionUpdate *resumptionUpdate `json:"sessionResumptionUpdate"`
	GoAway                  *goAwayWire       `json:"goAway"`
}

type serverContent struct {
	ModelTurn           *content       `json:"modelTurn"`
	TurnComplete        bool           `json:"turnComplete"`
	Interrupted         bool           `json:"interrupted"`
	InputTranscription  *transcription `json:"inputTranscription"`
	OutputTranscription *transcription `json:"outputTranscription"`
}

type transcription struct {
	Text string `json:"text"`
}

type serverToolCall struct {
	FunctionCalls []functionCallWire `json:"functionCalls"`
}

type functionCallWire struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type resumptionUpdate struct {
	NewHandle string `json:"newHandle"`
	Resumable bool   `json:"resumable"`
}

type goAwayWire struct {
	TimeLeft string `json:"timeLeft"` // duration string, e.g. "9.5s"
}
