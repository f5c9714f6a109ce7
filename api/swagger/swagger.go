package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CampusKit Blocks API",
        "description": "Block section capacity assignment service",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Blocks", "description": "Block group and section directory"},
        {"name": "Assignments", "description": "Student-to-section assignment"},
        {"name": "Overcapacity", "description": "Overcapacity resolution sessions"},
        {"name": "Dashboard", "description": "Group utilization summaries"},
        {"name": "Exports", "description": "Section roster exports"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/blocks/groups": {
            "get": {
                "tags": ["Blocks"],
                "summary": "List block groups",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "program", "in": "query", "type": "string"},
                    {"name": "semester", "in": "query", "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Blocks"],
                "summary": "Create block group",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBlockGroupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Group already exists"}
                }
            }
        },
        "/blocks/groups/{groupId}": {
            "delete": {
                "tags": ["Blocks"],
                "summary": "Delete block group and its sections",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Group not found"},
                    "412": {"description": "Active assignments remain"}
                }
            }
        },
        "/blocks/groups/{groupId}/sections": {
            "get": {
                "tags": ["Blocks"],
                "summary": "List sections of a group",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Group not found"}
                }
            },
            "post": {
                "tags": ["Blocks"],
                "summary": "Create section in a group",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Section code already exists"}
                }
            }
        },
        "/blocks/groups/{groupId}/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Cached utilization summary for a group",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Group not found"}
                }
            }
        },
        "/blocks/assignable-students": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List students assignable to a group",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "query", "required": true, "type": "string"},
                    {"name": "semester", "in": "query", "required": true, "type": "string"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/blocks/sections/{sectionId}/students": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Active roster of a section",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "sectionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Section not found"}
                }
            }
        },
        "/blocks/assign-student": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign one student to a section",
                "description": "Returns status ASSIGNED on success, or OVER_CAPACITY with a resolution session when the section is full.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "Assigned or overcapacity outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate active assignment"},
                    "412": {"description": "Section closed"}
                }
            }
        },
        "/blocks/assign-students": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign a batch of students",
                "description": "Each student is processed independently; failures never open resolution sessions.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "Batch summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/blocks/assignments/{assignmentId}": {
            "delete": {
                "tags": ["Assignments"],
                "summary": "Remove an active assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Removed, returns updated section", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Assignment not found"},
                    "409": {"description": "Assignment not active"}
                }
            }
        },
        "/blocks/overcapacity/{resolutionId}": {
            "get": {
                "tags": ["Overcapacity"],
                "summary": "Fetch a pending resolution session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "resolutionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found or expired"}
                }
            }
        },
        "/blocks/overcapacity/decision": {
            "post": {
                "tags": ["Overcapacity"],
                "summary": "Apply a resolution decision",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideRequest"}}
                ],
                "responses": {
                    "200": {"description": "Decision applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found or expired"},
                    "409": {"description": "Decision conflicts with current state"},
                    "422": {"description": "Invalid decision payload"}
                }
            }
        },
        "/blocks/overcapacity/{resolutionId}/cancel": {
            "post": {
                "tags": ["Overcapacity"],
                "summary": "Cancel a pending resolution session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "resolutionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "404": {"description": "Session not found or expired"}
                }
            }
        },
        "/blocks/sections/{sectionId}/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export a section roster",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "sectionId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Signed download URL", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Section not found"}
                }
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an exported roster file",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "404": {"description": "Unknown or expired token"}
                }
            }
        }
    },
    "definitions": {
        "CreateBlockGroupRequest": {
            "type": "object",
            "required": ["program", "year_level", "semester", "school_year", "initial_section"],
            "properties": {
                "program": {"type": "string"},
                "year_level": {"type": "integer"},
                "semester": {"type": "string"},
                "school_year": {"type": "integer"},
                "max_overcap": {"type": "integer"},
                "initial_section": {"$ref": "#/definitions/CreateSectionRequest"}
            }
        },
        "CreateSectionRequest": {
            "type": "object",
            "required": ["letter", "capacity"],
            "properties": {
                "letter": {"type": "string"},
                "capacity": {"type": "integer"}
            }
        },
        "AssignRequest": {
            "type": "object",
            "required": ["student_id", "section_id", "semester", "school_year"],
            "properties": {
                "student_id": {"type": "string"},
                "section_id": {"type": "string"},
                "semester": {"type": "string"},
                "school_year": {"type": "integer"}
            }
        },
        "AssignBatchRequest": {
            "type": "object",
            "required": ["student_ids", "section_id", "semester", "school_year"],
            "properties": {
                "student_ids": {"type": "array", "items": {"type": "string"}},
                "section_id": {"type": "string"},
                "semester": {"type": "string"},
                "school_year": {"type": "integer"}
            }
        },
        "DecideRequest": {
            "type": "object",
            "required": ["resolution_id", "action"],
            "properties": {
                "resolution_id": {"type": "string"},
                "action": {"type": "string", "enum": ["TRANSFER", "OVERRIDE", "INCREASE_CAPACITY", "CLOSE_SECTION"]},
                "reason": {"type": "string"},
                "target_section_id": {"type": "string"},
                "new_capacity": {"type": "integer"}
            }
        },
        "APIError": {
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
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
