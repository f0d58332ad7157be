package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic Registrar API",
        "description": "Section scheduling, conflict detection and capacity-bounded enrollment with waitlists.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Enrollments", "description": "Seats, waitlists and status transitions"},
        {"name": "Meetings", "description": "Weekly section meetings"},
        {"name": "Appointments", "description": "Lecturer and TA appointments"},
        {"name": "Conflicts", "description": "Room and teacher double-booking checks"},
        {"name": "Calendar", "description": "iCalendar timetable export"},
        {"name": "Rosters", "description": "Section roster export"},
        {"name": "System", "description": "Health checks and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {"tags": ["System"], "summary": "Liveness check", "security": [], "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {"tags": ["System"], "summary": "Readiness check", "security": [], "responses": {"200": {"description": "Ready"}, "503": {"description": "A dependency is unavailable"}}}
        },
        "/metrics": {
            "get": {"tags": ["System"], "summary": "Prometheus metrics", "security": [], "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/sections/{id}/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student in a section",
                "parameters": [
                    {"$ref": "#/parameters/SectionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Active or waitlisted enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "DUPLICATE_ENROLLMENT, WAITLIST_FULL or SECTION_CLOSED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "MISSING_PREREQUISITE or WINDOW_CLOSED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Enrollments"],
                "summary": "List section enrollments",
                "parameters": [
                    {"$ref": "#/parameters/SectionID"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["ACTIVE", "WAITLISTED", "DROPPED", "COMPLETED", "FAILED"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get enrollment",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/enrollments/{id}/withdraw": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Withdraw from a section",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"200": {"description": "Dropped enrollment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/enrollments/{id}/override": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Override enrollment status",
                "parameters": [
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OverrideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "ILLEGAL_TRANSITION or CAPACITY_EXCEEDED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sections/{id}/meetings": {
            "get": {
                "tags": ["Meetings"],
                "summary": "List section meetings",
                "parameters": [{"$ref": "#/parameters/SectionID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Meetings"],
                "summary": "Add a weekly meeting",
                "parameters": [
                    {"$ref": "#/parameters/SectionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MeetingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Stored meeting with warnings", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "CONFLICT_DETECTED or TERM_LOCKED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/meetings/{id}": {
            "put": {
                "tags": ["Meetings"],
                "summary": "Replace a meeting",
                "parameters": [
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MeetingRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Meetings"],
                "summary": "Delete a meeting",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/api/v1/meetings/{id}/occurrences": {
            "get": {
                "tags": ["Meetings"],
                "summary": "Preview dated occurrences",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/sections/{id}/appointments": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List section appointments",
                "parameters": [{"$ref": "#/parameters/SectionID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Appointments"],
                "summary": "Appoint a lecturer or TA",
                "parameters": [
                    {"$ref": "#/parameters/SectionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AppointmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "LOAD_EXCEEDED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/appointments/{id}": {
            "put": {
                "tags": ["Appointments"],
                "summary": "Change role or load",
                "parameters": [
                    {"$ref": "#/parameters/ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAppointmentRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Appointments"],
                "summary": "Remove an appointment",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/api/v1/conflicts/meetings": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Check a candidate meeting",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictMeetingRequest"}}],
                "responses": {"200": {"description": "Conflict report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/conflicts/appointments": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Check a candidate appointment",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictAppointmentRequest"}}],
                "responses": {"200": {"description": "Conflict report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/sections/{id}/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "Section conflict matrix",
                "parameters": [{"$ref": "#/parameters/SectionID"}],
                "responses": {"200": {"description": "Conflict report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/sections/{id}/calendar.ics": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Download a section timetable",
                "produces": ["text/calendar"],
                "parameters": [{"$ref": "#/parameters/SectionID"}],
                "responses": {"200": {"description": "iCalendar file", "schema": {"type": "file"}}}
            }
        },
        "/api/v1/students/{id}/calendar.ics": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Download a student timetable for a term",
                "produces": ["text/calendar"],
                "parameters": [
                    {"$ref": "#/parameters/ID"},
                    {"name": "term_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "iCalendar file", "schema": {"type": "file"}}}
            }
        },
        "/api/v1/sections/{id}/roster": {
            "get": {
                "tags": ["Rosters"],
                "summary": "Download a section roster",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"$ref": "#/parameters/SectionID"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"], "default": "csv"}
                ],
                "responses": {"200": {"description": "Roster file", "schema": {"type": "file"}}}
            }
        }
    },
    "parameters": {
        "ID": {"name": "id", "in": "path", "required": true, "type": "string"},
        "SectionID": {"name": "id", "in": "path", "required": true, "type": "string", "description": "Section ID"}
    },
    "definitions": {
        "EnrollRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "role": {"type": "string", "enum": ["STUDENT", "AUDITOR"]}
            },
            "required": ["student_id"]
        },
        "OverrideRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ACTIVE", "COMPLETED", "FAILED", "DROPPED"]},
                "reason": {"type": "string"}
            },
            "required": ["status"]
        },
        "RepeatRequest": {
            "type": "object",
            "properties": {
                "frequency": {"type": "string", "enum": ["WEEKLY"]},
                "until": {"type": "string", "format": "date"},
                "exceptions": {"type": "array", "items": {"type": "string", "format": "date"}}
            }
        },
        "MeetingRequest": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 6},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:30"},
                "room_id": {"type": "integer"},
                "modality": {"type": "string", "enum": ["ONSITE", "ONLINE", "HYBRID"]},
                "repeat": {"$ref": "#/definitions/RepeatRequest"}
            },
            "required": ["day_of_week", "start_time", "end_time"]
        },
        "ConflictMeetingRequest": {
            "type": "object",
            "allOf": [
                {"$ref": "#/definitions/MeetingRequest"},
                {"properties": {"section_id": {"type": "string"}, "meeting_id": {"type": "string"}}, "required": ["section_id"]}
            ]
        },
        "AppointmentRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "role": {"type": "string", "enum": ["LECTURER", "TA"]},
                "load_percent": {"type": "integer", "minimum": 1, "maximum": 100}
            },
            "required": ["user_id", "role", "load_percent"]
        },
        "UpdateAppointmentRequest": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["LECTURER", "TA"]},
                "load_percent": {"type": "integer", "minimum": 1, "maximum": 100}
            },
            "required": ["role", "load_percent"]
        },
        "ConflictAppointmentRequest": {
            "type": "object",
            "properties": {
                "section_id": {"type": "string"},
                "user_id": {"type": "string"},
                "role": {"type": "string", "enum": ["LECTURER", "TA"]}
            },
            "required": ["section_id", "user_id"]
        },
        "Warning": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "warnings": {"type": "array", "items": {"$ref": "#/definitions/Warning"}},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
