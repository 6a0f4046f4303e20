package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Neurons LMS API",
        "description": "Course, enrollment and content management backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Users", "description": "User administration and instructor course assignment"},
        {"name": "Courses", "description": "Course catalog, rosters and exports"},
        {"name": "Enrollments", "description": "Student enrollment"},
        {"name": "Modules", "description": "Nested course module tree"},
        {"name": "Contents", "description": "Typed content items and file downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Tokens refreshed"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "User list"}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create user",
                "responses": {
                    "201": {"description": "User created"},
                    "409": {"description": "Duplicate email"}
                }
            }
        },
        "/users/{id}/courses": {
            "put": {
                "tags": ["Users"],
                "summary": "Replace an instructor's course list",
                "responses": {
                    "204": {"description": "Courses reassigned"},
                    "404": {"description": "Unknown instructor or course ids"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List visible courses",
                "responses": {
                    "200": {"description": "Role-scoped course list"}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create course",
                "responses": {
                    "201": {"description": "Course created"},
                    "409": {"description": "Duplicate code"}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Course detail with top-level modules",
                "responses": {
                    "200": {"description": "Course detail"},
                    "403": {"description": "Not enrolled"}
                }
            }
        },
        "/courses/{id}/enroll": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll the caller",
                "responses": {
                    "204": {"description": "Enrolled or no-op"}
                }
            }
        },
        "/courses/{id}/unenroll": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Unenroll the caller",
                "responses": {
                    "204": {"description": "Unenrolled or no-op"}
                }
            }
        },
        "/courses/{id}/roster/export": {
            "get": {
                "tags": ["Courses"],
                "summary": "Export the roster as CSV or PDF",
                "responses": {
                    "200": {"description": "Roster file"}
                }
            }
        },
        "/modules": {
            "post": {
                "tags": ["Modules"],
                "summary": "Create module",
                "responses": {
                    "201": {"description": "Module created"}
                }
            }
        },
        "/contents": {
            "post": {
                "tags": ["Contents"],
                "summary": "Create content item",
                "responses": {
                    "201": {"description": "Content created"},
                    "400": {"description": "Type/field mismatch"}
                }
            }
        },
        "/downloads/{token}": {
            "get": {
                "tags": ["Contents"],
                "summary": "Serve a file referenced by a signed token",
                "responses": {
                    "200": {"description": "File payload"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"type": "object"},
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
