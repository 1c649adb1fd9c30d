package speech

import "reception-voicebot/pkg"

// DefaultVoiceID is Aria's provider id, used when a request omits voice_id.
const DefaultVoiceID = "pFZP5JQG7iQjIQuC4Bku"

// Voices maps short display keys to provider voice ids. The catalog is
// advisory: request payloads carry the raw provider id, not the short key.
var Voices = map[string]pkg.Voice{
	"aria":   {ID: "pFZP5JQG7iQjIQuC4Bku", Name: "Aria (Female, Professional)"},
	"rachel": {ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel (Female, Calm)"},
	"adam":   {ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam (Male, Professional)"},
	"josh":   {ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh (Male, Friendly)"},
	"arnold": {ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold (Male, Deep)"},
	"bella":  {ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella (Female, Warm)"},
	"elli":   {ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli (Female, Young)"},
	"james":  {ID: "ZQe5CZNOzWyzPSCn5a3c", Name: "James (Male, Mature)"},
}
