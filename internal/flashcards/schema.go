package flashcards

import "encoding/json"

// Schema is the JSON schema declared for flashcard objects.
var Schema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "@id": { "type": "string" },
    "@type": { "enum": ["flashcard"] },
    "frontText": { "type": "string" },
    "backText": { "type": "string" },
    "hint": { "type": "string" },
    "familiarity": { "type": "number" },
    "reviewedCount": { "type": "number" },
    "group": { "type": "string" },
    "reviewedAt": { "type": "string", "format": "date-time" },
    "createdAt": { "type": "string", "format": "date-time" },
    "updatedAt": { "type": "string", "format": "date-time" }
  },
  "required": ["@id", "@type", "frontText", "group", "createdAt"]
}`)
