// Package suno drives song generation against the sunoapi.org HTTP API. The
// API is used in polling mode only: requests carry a placeholder callback URL
// and completion is detected by polling the record-info endpoint.
package suno

// TaskStatus is the provider-reported lifecycle of a generation task. The
// provider can report these out of order and may retry internally after a
// failure, which is why progress tracking lives in progressTracker rather
// than being read off the status directly.
type TaskStatus string

const (
	StatusPending      TaskStatus = "PENDING"
	StatusRunning      TaskStatus = "RUNNING"
	StatusTextSuccess  TaskStatus = "TEXT_SUCCESS"
	StatusFirstSuccess TaskStatus = "FIRST_SUCCESS"
	StatusSuccess      TaskStatus = "SUCCESS"

	StatusCreateTaskFailed    TaskStatus = "CREATE_TASK_FAILED"
	StatusGenerateAudioFailed TaskStatus = "GENERATE_AUDIO_FAILED"
	StatusCallbackException   TaskStatus = "CALLBACK_EXCEPTION"
	StatusSensitiveWordError  TaskStatus = "SENSITIVE_WORD_ERROR"
)

// Failed reports whether the status is any of the provider's failure states.
func (s TaskStatus) Failed() bool {
	switch s {
	case StatusCreateTaskFailed, StatusGenerateAudioFailed, StatusCallbackException, StatusSensitiveWordError:
		return true
	}
	return false
}

type GenerateRequest struct {
	Prompt              string  `json:"prompt"`
	Style               string  `json:"style"`
	Title               string  `json:"title"`
	CustomMode          bool    `json:"customMode"`
	Instrumental        bool    `json:"instrumental"`
	Model               string  `json:"model"`
	CallBackURL         string  `json:"callBackUrl"`
	NegativeTags        string  `json:"negativeTags,omitempty"`
	StyleWeight         float64 `json:"styleWeight,omitempty"`
	WeirdnessConstraint float64 `json:"weirdnessConstraint,omitempty"`
	AudioWeight         float64 `json:"audioWeight,omitempty"`
}

type Track struct {
	ID             string  `json:"id"`
	AudioURL       string  `json:"audioUrl"`
	StreamAudioURL string  `json:"streamAudioUrl"`
	ImageURL       string  `json:"imageUrl"`
	Title          string  `json:"title"`
	Duration       float64 `json:"duration"`
}

// RecordInfo is the flattened view of a record-info response.
type RecordInfo struct {
	TaskID       string
	Status       TaskStatus
	Tracks       []Track
	ErrorMessage string
}

// FirstAudioURL extracts the playable URL from the first track.
func (r RecordInfo) FirstAudioURL() (string, error) {
	if len(r.Tracks) == 0 || r.Tracks[0].AudioURL == "" {
		return "", ErrMissingAudio
	}
	return r.Tracks[0].AudioURL, nil
}

// AlignedWord is one word of the timestamped lyrics for a generated track.
type AlignedWord struct {
	Word    string  `json:"word"`
	Success bool    `json:"success"`
	StartS  float64 `json:"startS"`
	EndS    float64 `json:"endS"`
}
