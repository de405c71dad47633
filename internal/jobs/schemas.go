package jobs

// Per-kind payload schemas, compiled at registry construction. A payload
// failing its schema is dead-lettered without ever reaching a handler.

const quotationEventSchema = `{
  "type": "object",
  "required": ["quotation_id", "quotation_type", "customer_id", "new_status", "actor_type"],
  "properties": {
    "quotation_id":    {"type": "string", "minLength": 1},
    "quotation_type":  {"type": "string", "enum": ["DIRECT", "OPEN"]},
    "customer_id":     {"type": "string", "minLength": 1},
    "artist_id":       {"type": "string"},
    "previous_status": {"type": "string"},
    "new_status":      {"type": "string", "minLength": 1},
    "actor_type":      {"type": "string", "enum": ["CUSTOMER", "ARTIST", "SYSTEM"]},
    "reason":          {"type": "string"}
  },
  "additionalProperties": false
}`

const offerEventSchema = `{
  "type": "object",
  "required": ["quotation_id", "offer_id", "artist_id", "customer_id"],
  "properties": {
    "quotation_id":  {"type": "string", "minLength": 1},
    "offer_id":      {"type": "string", "minLength": 1},
    "artist_id":     {"type": "string", "minLength": 1},
    "customer_id":   {"type": "string", "minLength": 1},
    "cost_amount":   {"type": "integer"},
    "cost_currency": {"type": "string"},
    "cost_scale":    {"type": "integer"}
  },
  "additionalProperties": false
}`

const eventReminderSchema = `{
  "type": "object",
  "required": ["quotation_id", "recipient_id", "recipient_type", "appointment_date"],
  "properties": {
    "quotation_id":     {"type": "string", "minLength": 1},
    "recipient_id":     {"type": "string", "minLength": 1},
    "recipient_type":   {"type": "string", "enum": ["CUSTOMER", "ARTIST"]},
    "appointment_date": {"type": "string", "format": "date-time"}
  },
  "additionalProperties": false
}`
