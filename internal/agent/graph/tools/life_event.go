package tools

import "strings"

// LifeEvent is a coarse tag for a life situation mentioned by the user.
type LifeEvent string

const (
	EventMarriage         LifeEvent = "marriage"
	EventNewHouse         LifeEvent = "new_house"
	EventMedicalEmergency LifeEvent = "medical_emergency"
	EventNone             LifeEvent = "none"
)

// lifeEventKeywords is checked in order; the first tag with a matching keyword wins.
var lifeEventKeywords = []struct {
	event    LifeEvent
	keywords []string
}{
	{EventMarriage, []string{"married", "wedding", "marriage"}},
	{EventNewHouse, []string{"house", "apartment", "moving", "property"}},
	{EventMedicalEmergency, []string{"medical", "hospital", "emergency", "doctor"}},
}

// DetectLifeEvent classifies the utterance by case-insensitive keyword match.
func DetectLifeEvent(utterance string) LifeEvent {
	q := strings.ToLower(utterance)
	for _, group := range lifeEventKeywords {
		for _, k := range group.keywords {
			if strings.Contains(q, k) {
				return group.event
			}
		}
	}
	return EventNone
}
