package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic API",
        "description": "Multi-tenant academic enrollment and number registry service",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Student records"},
        {"name": "Enrollments", "description": "Class enrollment lifecycle"},
        {"name": "Subject Enrollments", "description": "Per-subject enrollment management"},
        {"name": "Catalog", "description": "Class-subject bindings"},
        {"name": "Sequences", "description": "Sequential number registry"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "academicYearId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll student into a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Student already active in the academic year"}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/enrollments/{id}/status": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Update enrollment status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEnrollmentStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Terminal status cannot return to ACTIVE"}
                }
            }
        },
        "/enrollments/promote": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Promote student to a new class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PromoteStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active enrollment in the source class"}
                }
            }
        },
        "/enrollments/transfer": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Transfer student to another school",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransferStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/available-electives": {
            "get": {
                "tags": ["Subject Enrollments"],
                "summary": "List electives the enrollment can still take",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subject-enrollments": {
            "get": {
                "tags": ["Subject Enrollments"],
                "summary": "List subject enrollments",
                "parameters": [
                    {"name": "enrollmentId", "in": "query", "type": "string"},
                    {"name": "classSubjectId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Subject Enrollments"],
                "summary": "Enroll in a subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollInSubjectRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already enrolled in the subject"}
                }
            }
        },
        "/subject-enrollments/bulk": {
            "post": {
                "tags": ["Subject Enrollments"],
                "summary": "Bulk enroll students into a subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkEnrollRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subject-enrollments/drop": {
            "post": {
                "tags": ["Subject Enrollments"],
                "summary": "Drop a subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DropSubjectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Subject enrollment not found"}
                }
            }
        },
        "/classes/{classId}/subjects": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List subject bindings for a class",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "category", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{classId}/subjects/core": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List core subject bindings for a class",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/class-subjects": {
            "post": {
                "tags": ["Catalog"],
                "summary": "Bind a subject to a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBindingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sequences/{kind}/next": {
            "post": {
                "tags": ["Sequences"],
                "summary": "Claim the next identifier",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "schoolId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Persistent serialization conflict"}
                }
            }
        },
        "/sequences/{kind}/peek": {
            "get": {
                "tags": ["Sequences"],
                "summary": "Preview the next identifier without claiming it",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "schoolId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sequences/{kind}/current": {
            "get": {
                "tags": ["Sequences"],
                "summary": "Read the raw counter value",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "schoolId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sequences/{kind}/reset": {
            "put": {
                "tags": ["Sequences"],
                "summary": "Administratively reset a counter",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetSequenceRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/sequences/{kind}/batch": {
            "post": {
                "tags": ["Sequences"],
                "summary": "Claim a batch of identifiers",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchSequenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateStudentRequest": {
            "type": "object",
            "required": ["full_name", "gender", "birth_date"],
            "properties": {
                "school_id": {"type": "string"},
                "full_name": {"type": "string"},
                "gender": {"type": "string", "enum": ["MALE", "FEMALE"]},
                "birth_date": {"type": "string", "format": "date-time"}
            }
        },
        "EnrollStudentRequest": {
            "type": "object",
            "required": ["student_id", "class_id", "academic_year_id"],
            "properties": {
                "student_id": {"type": "string"},
                "class_id": {"type": "string"},
                "stream_id": {"type": "string"},
                "academic_year_id": {"type": "string"}
            }
        },
        "UpdateEnrollmentStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["ACTIVE", "PROMOTED", "TRANSFERRED"]}
            }
        },
        "PromoteStudentRequest": {
            "type": "object",
            "required": ["student_id", "current_class_id", "new_class_id", "academic_year_id"],
            "properties": {
                "student_id": {"type": "string"},
                "current_class_id": {"type": "string"},
                "new_class_id": {"type": "string"},
                "stream_id": {"type": "string"},
                "academic_year_id": {"type": "string"},
                "elective_subject_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "TransferStudentRequest": {
            "type": "object",
            "required": ["student_id", "new_school_id", "reason", "transfer_date"],
            "properties": {
                "student_id": {"type": "string"},
                "new_school_id": {"type": "string"},
                "reason": {"type": "string"},
                "transfer_date": {"type": "string", "format": "date-time"}
            }
        },
        "EnrollInSubjectRequest": {
            "type": "object",
            "required": ["student_id", "enrollment_id", "class_subject_id"],
            "properties": {
                "student_id": {"type": "string"},
                "enrollment_id": {"type": "string"},
                "class_subject_id": {"type": "string"}
            }
        },
        "BulkEnrollRequest": {
            "type": "object",
            "required": ["class_subject_id", "enrollment_ids"],
            "properties": {
                "class_subject_id": {"type": "string"},
                "enrollment_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "DropSubjectRequest": {
            "type": "object",
            "required": ["enrollment_id", "class_subject_id"],
            "properties": {
                "enrollment_id": {"type": "string"},
                "class_subject_id": {"type": "string"}
            }
        },
        "CreateBindingRequest": {
            "type": "object",
            "required": ["school_id", "class_id", "subject_id", "academic_year_id", "category"],
            "properties": {
                "school_id": {"type": "string"},
                "class_id": {"type": "string"},
                "stream_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "academic_year_id": {"type": "string"},
                "term": {"type": "string"},
                "category": {"type": "string", "enum": ["CORE", "ELECTIVE", "OPTIONAL", "TECHNICAL", "APPLIED"]},
                "teacher_id": {"type": "string"}
            }
        },
        "ResetSequenceRequest": {
            "type": "object",
            "properties": {
                "start_value": {"type": "integer"},
                "school_id": {"type": "string"}
            }
        },
        "BatchSequenceRequest": {
            "type": "object",
            "required": ["count"],
            "properties": {
                "count": {"type": "integer"},
                "school_id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
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
