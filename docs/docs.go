// Package docs holds the OpenAPI document served under /swagger.
// Regenerate it from the handler annotations with the go:generate directive.
package docs

//go:generate swag init -g cmd/server/main.go -d ../ -o . --parseInternal

import "github.com/swaggo/swag/v2"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/print/jobs": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Upload a document with its print options. The job is recorded PENDING and handed to the backend in the background.",
				"consumes": [
					"multipart/form-data"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"print-jobs"
				],
				"summary": "Submit a print job",
				"operationId": "submitPrintJob",
				"parameters": [
					{
						"type": "file",
						"description": "Document (pdf, office formats, html, text)",
						"name": "file",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"description": "Target device",
						"name": "printer_id",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"description": "Paper size",
						"name": "paper_size",
						"in": "formData",
						"required": false,
						"enum": [
							"A3",
							"A4",
							"A5",
							"LETTER",
							"LEGAL"
						]
					},
					{
						"type": "integer",
						"description": "Copies",
						"name": "copies",
						"in": "formData",
						"required": false,
						"minimum": 1
					},
					{
						"type": "string",
						"description": "Color mode",
						"name": "color_mode",
						"in": "formData",
						"required": false,
						"enum": [
							"COLOR",
							"GRAYSCALE"
						]
					},
					{
						"type": "string",
						"description": "Duplex mode",
						"name": "duplex_mode",
						"in": "formData",
						"required": false,
						"enum": [
							"SINGLE",
							"DOUBLE"
						]
					},
					{
						"type": "string",
						"description": "Orientation",
						"name": "orientation",
						"in": "formData",
						"required": false,
						"enum": [
							"UPRIGHT",
							"SIDEWAYS"
						]
					},
					{
						"type": "string",
						"description": "Page layout",
						"name": "page_layout",
						"in": "formData",
						"required": false,
						"enum": [
							"STANDARD",
							"BOOKLET"
						]
					},
					{
						"type": "string",
						"description": "Margins",
						"name": "margin_profile",
						"in": "formData",
						"required": false,
						"enum": [
							"NORMAL",
							"NARROW"
						]
					},
					{
						"type": "string",
						"description": "Page range, e.g. 2-5",
						"name": "page_selection",
						"in": "formData",
						"required": false
					},
					{
						"type": "integer",
						"description": "First booklet sheet",
						"name": "sheets_from",
						"in": "formData",
						"required": false
					},
					{
						"type": "integer",
						"description": "Last booklet sheet",
						"name": "sheets_to",
						"in": "formData",
						"required": false
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/printing.PrintJobResponse"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"413": {
						"description": "Request Entity Too Large",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"422": {
						"description": "Unprocessable Entity",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			},
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"print-jobs"
				],
				"summary": "List print jobs",
				"operationId": "listPrintJobs",
				"parameters": [
					{
						"type": "integer",
						"description": "Page",
						"name": "page",
						"in": "query",
						"minimum": 1
					},
					{
						"type": "integer",
						"description": "Page size",
						"name": "page_size",
						"in": "query",
						"minimum": 1,
						"maximum": 100
					},
					{
						"type": "string",
						"description": "Sort field",
						"name": "order_by",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Sort direction",
						"name": "order_dir",
						"in": "query",
						"enum": [
							"asc",
							"desc"
						]
					},
					{
						"type": "string",
						"description": "Status filter",
						"name": "status",
						"in": "query",
						"enum": [
							"PENDING",
							"PROCESSING",
							"HELD",
							"COMPLETED",
							"ABORTED",
							"CANCELED"
						]
					},
					{
						"type": "string",
						"description": "Device filter",
						"name": "printer_id",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "array",
											"items": {
												"$ref": "#/definitions/printing.PrintJobResponse"
											}
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/print/jobs/{id}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"print-jobs"
				],
				"summary": "Get print job by ID",
				"operationId": "getPrintJob",
				"parameters": [
					{
						"type": "string",
						"format": "uuid",
						"description": "Job ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/printing.PrintJobResponse"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/print/jobs/{id}/cancel-polling": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Stop following a job and record it CANCELED. Finished jobs answer 409.",
				"produces": [
					"application/json"
				],
				"tags": [
					"print-jobs"
				],
				"summary": "Cancel status polling",
				"operationId": "cancelPrintJobPolling",
				"parameters": [
					{
						"type": "string",
						"format": "uuid",
						"description": "Job ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/printing.PrintJobResponse"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/print/requesters/{requester_id}/jobs": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"print-jobs"
				],
				"summary": "List a requester's print jobs",
				"operationId": "listRequesterPrintJobs",
				"parameters": [
					{
						"type": "string",
						"description": "Requester ID",
						"name": "requester_id",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"description": "Page",
						"name": "page",
						"in": "query",
						"minimum": 1
					},
					{
						"type": "integer",
						"description": "Page size",
						"name": "page_size",
						"in": "query",
						"minimum": 1,
						"maximum": 100
					},
					{
						"type": "string",
						"description": "Status filter",
						"name": "status",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "array",
											"items": {
												"$ref": "#/definitions/printing.PrintJobResponse"
											}
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/print/me/jobs": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"print-jobs"
				],
				"summary": "List my print jobs",
				"operationId": "listMyPrintJobs",
				"parameters": [
					{
						"type": "integer",
						"description": "Page",
						"name": "page",
						"in": "query",
						"minimum": 1
					},
					{
						"type": "integer",
						"description": "Page size",
						"name": "page_size",
						"in": "query",
						"minimum": 1,
						"maximum": 100
					},
					{
						"type": "string",
						"description": "Status filter",
						"name": "status",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "array",
											"items": {
												"$ref": "#/definitions/printing.PrintJobResponse"
											}
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/print/devices": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"print-devices"
				],
				"summary": "List devices",
				"operationId": "listPrintDevices",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "array",
											"items": {
												"$ref": "#/definitions/printing.DeviceResponse"
											}
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/print/stream": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Server-sent events: connected, job_created, job_updated, printers and heartbeat. Answers 503 when the client cap is reached.",
				"produces": [
					"text/event-stream"
				],
				"tags": [
					"print-stream"
				],
				"summary": "Job and device event stream",
				"operationId": "streamPrintEvents",
				"responses": {
					"200": {
						"description": "event stream",
						"schema": {
							"type": "string"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/system/info": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Get system information",
				"operationId": "getSystemInfo",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/handler.SystemInfoResponse"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/system/ping": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Ping",
				"operationId": "ping",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/handler.APIResponse-any"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/handler.PingResponse"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/health": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Dependency health",
				"operationId": "health",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.HealthResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/handler.HealthResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"dto.ErrorInfo": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string",
					"example": "ERR_NOT_FOUND"
				},
				"message": {
					"type": "string"
				},
				"request_id": {
					"type": "string"
				},
				"timestamp": {
					"type": "integer"
				},
				"details": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/dto.ValidationDetail"
					}
				}
			}
		},
		"dto.ValidationDetail": {
			"type": "object",
			"properties": {
				"field": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"dto.Meta": {
			"type": "object",
			"properties": {
				"total": {
					"type": "integer"
				},
				"page": {
					"type": "integer"
				},
				"page_size": {
					"type": "integer"
				},
				"total_pages": {
					"type": "integer"
				}
			}
		},
		"handler.APIResponse-any": {
			"description": "Standard API response wrapper",
			"type": "object",
			"properties": {
				"success": {
					"type": "boolean"
				},
				"data": {},
				"error": {
					"$ref": "#/definitions/dto.ErrorInfo"
				},
				"meta": {
					"$ref": "#/definitions/dto.Meta"
				}
			}
		},
		"handler.ErrorResponse": {
			"description": "Standard error response",
			"type": "object",
			"properties": {
				"success": {
					"type": "boolean",
					"example": false
				},
				"error": {
					"$ref": "#/definitions/dto.ErrorInfo"
				}
			}
		},
		"handler.HealthResponse": {
			"description": "Dependency health",
			"type": "object",
			"properties": {
				"status": {
					"type": "string",
					"example": "healthy"
				},
				"time": {
					"type": "string",
					"example": "2026-03-14T10:00:00Z"
				},
				"database": {
					"type": "string",
					"example": "ok"
				},
				"redis": {
					"type": "string",
					"example": "ok"
				}
			}
		},
		"handler.SystemInfoResponse": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"version": {
					"type": "string"
				},
				"go_version": {
					"type": "string"
				},
				"uptime": {
					"type": "string"
				},
				"stream_clients": {
					"type": "integer"
				}
			}
		},
		"handler.PingResponse": {
			"type": "object",
			"properties": {
				"message": {
					"type": "string",
					"example": "pong"
				},
				"timestamp": {
					"type": "string"
				}
			}
		},
		"printing.DeviceResponse": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"enabled": {
					"type": "boolean"
				},
				"description": {
					"type": "string"
				},
				"location": {
					"type": "string"
				}
			}
		},
		"printing.PrintJobResponse": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"format": "uuid"
				},
				"requester_id": {
					"type": "string"
				},
				"requester_name": {
					"type": "string"
				},
				"file_name": {
					"type": "string"
				},
				"source_format": {
					"type": "string"
				},
				"printer_id": {
					"type": "string"
				},
				"paper_size": {
					"type": "string"
				},
				"copies": {
					"type": "integer"
				},
				"color_mode": {
					"type": "string"
				},
				"duplex_mode": {
					"type": "string"
				},
				"orientation": {
					"type": "string"
				},
				"page_layout": {
					"type": "string"
				},
				"margin_profile": {
					"type": "string"
				},
				"page_selection": {
					"type": "string"
				},
				"sheets_from": {
					"type": "integer"
				},
				"sheets_to": {
					"type": "integer"
				},
				"original_page_count": {
					"type": "integer"
				},
				"status": {
					"type": "string",
					"enum": [
						"PENDING",
						"PROCESSING",
						"HELD",
						"COMPLETED",
						"ABORTED",
						"CANCELED"
					]
				},
				"backend_handle": {
					"type": "string"
				},
				"started_at": {
					"type": "string",
					"format": "date-time"
				},
				"ended_at": {
					"type": "string",
					"format": "date-time"
				},
				"error_message": {
					"type": "string"
				},
				"pages_printed": {
					"type": "integer"
				},
				"created_at": {
					"type": "string",
					"format": "date-time"
				},
				"updated_at": {
					"type": "string",
					"format": "date-time"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Bearer token. Format: \"Bearer {token}\". Without a configured secret the X-User-ID header identifies the caller.",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Print Dispatch API",
	Description:      "Accepts documents for printing, hands them to CUPS, the Windows spooler or an IPP printer, and tracks each job to a final status.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
