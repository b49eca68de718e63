// Package docs provides Swagger documentation for the Policy Admin API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Policy Admin API",
        "description": "Multi-tenant quote and policy administration.\n\nQuotes live in event-sourced aggregates and move through a configurable workflow before they are bound into policies.",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/MrKriegler/policy-admin"
        },
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": [
        "http",
        "https"
    ],
    "consumes": [
        "application/json"
    ],
    "produces": [
        "application/json"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Bearer JWT carrying tenantId and roles"
        }
    },
    "security": [
        {
            "BearerAuth": []
        }
    ],
    "parameters": {
        "tenantID": {
            "name": "tenantID",
            "in": "path",
            "required": true,
            "type": "string",
            "description": "Tenant ID"
        }
    },
    "paths": {
        "/api/v1/tenants/{tenantID}/quotes": {
            "post": {
                "tags": [
                    "Quotes"
                ],
                "summary": "Create a quote",
                "operationId": "createQuote",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateQuoteInput"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/AggregateView"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    },
                    "404": {
                        "description": "Tenant or product not found",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    },
                    "409": {
                        "description": "Feature disabled or aggregate busy",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                },
                "description": "Starts a new aggregate, or adds a follow-up quote (adjustment, renewal, cancellation) to an existing one."
            }
        },
        "/api/v1/tenants/{tenantID}/quotes/{aggregateID}": {
            "get": {
                "tags": [
                    "Quotes"
                ],
                "summary": "Get a quote aggregate",
                "operationId": "getQuote",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "aggregateID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote aggregate ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AggregateView"
                        }
                    },
                    "401": {
                        "description": "Aggregate belongs to another tenant",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/quotes/{aggregateID}/{quoteID}/form-data": {
            "put": {
                "tags": [
                    "Quotes"
                ],
                "summary": "Replace form data",
                "operationId": "updateFormData",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "aggregateID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote aggregate ID"
                    },
                    {
                        "name": "quoteID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/FormDataRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AggregateView"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    },
                    "409": {
                        "description": "Quote is read-only",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/quotes/{aggregateID}/{quoteID}/actions/{action}": {
            "post": {
                "tags": [
                    "Quotes"
                ],
                "summary": "Perform a workflow action",
                "operationId": "performAction",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "aggregateID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote aggregate ID"
                    },
                    {
                        "name": "quoteID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote ID"
                    },
                    {
                        "name": "action",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "enum": [
                            "Actualise",
                            "ReviewReferral",
                            "ReviewApproval",
                            "EndorsementReferral",
                            "EndorsementApproval",
                            "AutoApproval",
                            "Return",
                            "Decline",
                            "Bind"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AggregateView"
                        }
                    },
                    "404": {
                        "description": "Unknown action",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    },
                    "409": {
                        "description": "Action not allowed in current state",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                },
                "description": "Optional body {\"formData\": {...}} is saved before the transition."
            }
        },
        "/api/v1/tenants/{tenantID}/quotes/{aggregateID}/{quoteID}/versions": {
            "post": {
                "tags": [
                    "Quotes"
                ],
                "summary": "Snapshot a quote version",
                "operationId": "createQuoteVersion",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "aggregateID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote aggregate ID"
                    },
                    {
                        "name": "quoteID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote ID"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/QuoteVersion"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/quotes/{aggregateID}/{quoteID}/documents": {
            "post": {
                "tags": [
                    "Quotes"
                ],
                "summary": "Attach a document",
                "operationId": "attachDocument",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "aggregateID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote aggregate ID"
                    },
                    {
                        "name": "quoteID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/DocumentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/QuoteDocument"
                        }
                    },
                    "400": {
                        "description": "Empty content or missing name",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                },
                "description": "A second upload under the same name replaces the first."
            }
        },
        "/api/v1/tenants/{tenantID}/quotes/{aggregateID}/{quoteID}/customer": {
            "put": {
                "tags": [
                    "Quotes"
                ],
                "summary": "Associate a customer",
                "operationId": "associateCustomer",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "aggregateID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote aggregate ID"
                    },
                    {
                        "name": "quoteID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CustomerRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AggregateView"
                        }
                    },
                    "400": {
                        "description": "Missing customerId",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/policies/{aggregateID}/issue": {
            "post": {
                "tags": [
                    "Policies"
                ],
                "summary": "Bind a quote",
                "operationId": "issuePolicy",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "aggregateID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote aggregate ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/IssuePolicyInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AggregateView"
                        }
                    },
                    "409": {
                        "description": "Quote not bindable",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                },
                "description": "New business issues the policy; adjustment and renewal quotes change it."
            }
        },
        "/api/v1/tenants/{tenantID}/policies/{aggregateID}/cancel": {
            "post": {
                "tags": [
                    "Policies"
                ],
                "summary": "Cancel a policy",
                "operationId": "cancelPolicy",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "aggregateID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quote aggregate ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CancelPolicyInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AggregateView"
                        }
                    },
                    "409": {
                        "description": "Policy not issued or already cancelled",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/number-pools/load": {
            "post": {
                "tags": [
                    "Policies"
                ],
                "summary": "Load reference numbers",
                "operationId": "loadNumbers",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/LoadNumbersRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/NumberPool"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/products": {
            "get": {
                "tags": [
                    "Products"
                ],
                "summary": "List products",
                "operationId": "listProducts",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/Product"
                            }
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Products"
                ],
                "summary": "Create a product",
                "operationId": "createProduct",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/Product"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/Product"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    },
                    "409": {
                        "description": "Alias taken",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/products/{productID}": {
            "get": {
                "tags": [
                    "Products"
                ],
                "summary": "Get a product by ID or alias",
                "operationId": "getProduct",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "productID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Product ID or alias"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Product"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/products/{productID}/features": {
            "get": {
                "tags": [
                    "Product Features"
                ],
                "summary": "Get product features",
                "operationId": "getProductFeatures",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "productID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Product ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ProductFeatureSetting"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/products/{productID}/features/{feature}/enable": {
            "post": {
                "tags": [
                    "Product Features"
                ],
                "summary": "Enable a feature",
                "operationId": "enableFeature",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "productID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Product ID"
                    },
                    {
                        "name": "feature",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Feature item"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ProductFeatureSetting"
                        }
                    },
                    "409": {
                        "description": "Already enabled",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/products/{productID}/features/{feature}/disable": {
            "post": {
                "tags": [
                    "Product Features"
                ],
                "summary": "Disable a feature",
                "operationId": "disableFeature",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "productID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Product ID"
                    },
                    {
                        "name": "feature",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Feature item"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ProductFeatureSetting"
                        }
                    },
                    "409": {
                        "description": "Already disabled",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/products/{productID}/features/cancellation": {
            "put": {
                "tags": [
                    "Product Features"
                ],
                "summary": "Set the refund policy",
                "operationId": "updateCancellation",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "productID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Product ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RefundPolicy"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ProductFeatureSetting"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/alerts": {
            "get": {
                "tags": [
                    "Alerts"
                ],
                "summary": "List applicable alerts",
                "operationId": "listAlerts",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "productId",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/SystemAlert"
                            }
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "Alerts"
                ],
                "summary": "Create or update an alert",
                "operationId": "upsertAlert",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpsertSystemAlertInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/SystemAlert"
                        }
                    },
                    "400": {
                        "description": "Invalid thresholds",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/roles": {
            "post": {
                "tags": [
                    "Roles"
                ],
                "summary": "Create a role",
                "operationId": "createRole",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RoleInput"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/Role"
                        }
                    },
                    "409": {
                        "description": "Name taken",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/roles/{roleID}": {
            "get": {
                "tags": [
                    "Roles"
                ],
                "summary": "Get a role",
                "operationId": "getRole",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "roleID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Role ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Role"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "Roles"
                ],
                "summary": "Update a role",
                "operationId": "updateRole",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "roleID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Role ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RoleInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Role"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Roles"
                ],
                "summary": "Delete a role",
                "operationId": "deleteRole",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "roleID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Role ID"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    },
                    "409": {
                        "description": "Permanent or still assigned",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/roles/{roleID}/assignments": {
            "post": {
                "tags": [
                    "Roles"
                ],
                "summary": "Assign a role to a user",
                "operationId": "assignRole",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "name": "roleID",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Role ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AssignRoleRequest"
                        }
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Assigned"
                    },
                    "404": {
                        "description": "Role not found",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        },
        "/api/v1/tenants/{tenantID}/automation/http-actions": {
            "post": {
                "tags": [
                    "Automation"
                ],
                "summary": "Run an HTTP automation action",
                "operationId": "runHTTPAction",
                "parameters": [
                    {
                        "$ref": "#/parameters/tenantID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/HTTPRequestAction"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/HTTPActionResult"
                        }
                    },
                    "400": {
                        "description": "Invalid verb or URL",
                        "schema": {
                            "$ref": "#/definitions/Problem"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "Problem": {
            "type": "object",
            "properties": {
                "type": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "detail": {
                    "type": "string"
                },
                "code": {
                    "type": "string"
                },
                "data": {
                    "type": "object"
                }
            }
        },
        "CreateQuoteInput": {
            "type": "object",
            "properties": {
                "productId": {
                    "type": "string"
                },
                "environment": {
                    "type": "string",
                    "enum": [
                        "development",
                        "staging",
                        "production"
                    ]
                },
                "productReleaseId": {
                    "type": "string"
                },
                "quoteType": {
                    "type": "string",
                    "enum": [
                        "NewBusiness",
                        "Adjustment",
                        "Renewal",
                        "Cancellation"
                    ]
                },
                "aggregateId": {
                    "type": "string"
                },
                "formData": {
                    "type": "object"
                },
                "customerId": {
                    "type": "string"
                }
            },
            "required": [
                "productId"
            ]
        },
        "AggregateView": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "tenantId": {
                    "type": "string"
                },
                "productId": {
                    "type": "string"
                },
                "environment": {
                    "type": "string"
                },
                "customerId": {
                    "type": "string"
                },
                "version": {
                    "type": "integer"
                },
                "quotes": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Quote"
                    }
                },
                "policy": {
                    "$ref": "#/definitions/Policy"
                }
            }
        },
        "Quote": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "aggregateId": {
                    "type": "string"
                },
                "tenantId": {
                    "type": "string"
                },
                "type": {
                    "type": "string",
                    "enum": [
                        "NewBusiness",
                        "Adjustment",
                        "Renewal",
                        "Cancellation"
                    ]
                },
                "quoteNumber": {
                    "type": "string"
                },
                "productReleaseId": {
                    "type": "string"
                },
                "state": {
                    "type": "string"
                },
                "stateChanges": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "formData": {
                    "type": "object"
                },
                "latestCalculationResult": {
                    "type": "object"
                },
                "versions": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/QuoteVersion"
                    }
                },
                "documents": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/QuoteDocument"
                    }
                },
                "expiresAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "lastModifiedAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "Policy": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "tenantId": {
                    "type": "string"
                },
                "productId": {
                    "type": "string"
                },
                "customerId": {
                    "type": "string"
                },
                "policyNumber": {
                    "type": "string"
                },
                "quoteId": {
                    "type": "string"
                },
                "inceptionTime": {
                    "type": "string",
                    "format": "date-time"
                },
                "expiryTime": {
                    "type": "string",
                    "format": "date-time"
                },
                "latestPeriodStartTime": {
                    "type": "string",
                    "format": "date-time"
                },
                "cancellationEffectiveTime": {
                    "type": "string",
                    "format": "date-time"
                },
                "lastAdjustmentTime": {
                    "type": "string",
                    "format": "date-time"
                },
                "isAdjusted": {
                    "type": "boolean"
                },
                "isTermBased": {
                    "type": "boolean"
                },
                "refundAllowed": {
                    "type": "boolean"
                },
                "issuedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "QuoteVersion": {
            "type": "object",
            "properties": {
                "versionId": {
                    "type": "string"
                },
                "versionNumber": {
                    "type": "integer"
                },
                "formDataId": {
                    "type": "string"
                },
                "calculationResultId": {
                    "type": "string"
                },
                "state": {
                    "type": "string"
                },
                "createdBy": {
                    "type": "string"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "QuoteDocument": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "contentType": {
                    "type": "string"
                },
                "sizeBytes": {
                    "type": "integer"
                },
                "fileContentId": {
                    "type": "string"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "FormDataRequest": {
            "type": "object",
            "properties": {
                "formData": {
                    "type": "object"
                }
            },
            "required": [
                "formData"
            ]
        },
        "DocumentRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "contentType": {
                    "type": "string"
                },
                "content": {
                    "type": "string",
                    "format": "byte"
                }
            },
            "required": [
                "name",
                "content"
            ]
        },
        "CustomerRequest": {
            "type": "object",
            "properties": {
                "customerId": {
                    "type": "string"
                }
            },
            "required": [
                "customerId"
            ]
        },
        "IssuePolicyInput": {
            "type": "object",
            "properties": {
                "quoteId": {
                    "type": "string"
                },
                "inceptionTime": {
                    "type": "string",
                    "format": "date-time"
                },
                "expiryTime": {
                    "type": "string",
                    "format": "date-time"
                },
                "termBased": {
                    "type": "boolean"
                }
            },
            "required": [
                "quoteId"
            ]
        },
        "CancelPolicyInput": {
            "type": "object",
            "properties": {
                "quoteId": {
                    "type": "string"
                },
                "effectiveTime": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "quoteId",
                "effectiveTime"
            ]
        },
        "LoadNumbersRequest": {
            "type": "object",
            "properties": {
                "productId": {
                    "type": "string"
                },
                "environment": {
                    "type": "string"
                },
                "kind": {
                    "type": "string",
                    "enum": [
                        "quote",
                        "policy",
                        "claim",
                        "invoice"
                    ]
                },
                "count": {
                    "type": "integer"
                }
            },
            "required": [
                "productId",
                "kind",
                "count"
            ]
        },
        "NumberPool": {
            "type": "object",
            "properties": {
                "tenantId": {
                    "type": "string"
                },
                "productId": {
                    "type": "string"
                },
                "environment": {
                    "type": "string"
                },
                "kind": {
                    "type": "string"
                },
                "prefix": {
                    "type": "string"
                },
                "width": {
                    "type": "integer"
                },
                "next": {
                    "type": "integer"
                },
                "last": {
                    "type": "integer"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "Product": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "tenantId": {
                    "type": "string"
                },
                "alias": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "disabled": {
                    "type": "boolean"
                },
                "rating": {
                    "type": "object",
                    "properties": {
                        "termYears": {
                            "type": "integer"
                        },
                        "minCoverage": {
                            "type": "integer"
                        },
                        "maxCoverage": {
                            "type": "integer"
                        },
                        "baseRate": {
                            "type": "string"
                        }
                    }
                },
                "quoteExpiry": {
                    "type": "object",
                    "properties": {
                        "enabled": {
                            "type": "boolean"
                        },
                        "expiryDays": {
                            "type": "integer"
                        }
                    }
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "alias",
                "name"
            ]
        },
        "ProductFeatureSetting": {
            "type": "object",
            "properties": {
                "tenantId": {
                    "type": "string"
                },
                "productId": {
                    "type": "string"
                },
                "features": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "boolean"
                    }
                },
                "refundPolicy": {
                    "$ref": "#/definitions/RefundPolicy"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "RefundPolicy": {
            "type": "object",
            "properties": {
                "rule": {
                    "type": "string"
                },
                "periodCategory": {
                    "type": "string"
                },
                "lastNumberOfYears": {
                    "type": "integer"
                }
            },
            "required": [
                "rule"
            ]
        },
        "SystemAlert": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "tenantId": {
                    "type": "string"
                },
                "productId": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "warningThreshold": {
                    "type": "integer"
                },
                "criticalThreshold": {
                    "type": "integer"
                },
                "disabled": {
                    "type": "boolean"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "UpsertSystemAlertInput": {
            "type": "object",
            "properties": {
                "productId": {
                    "type": "string"
                },
                "type": {
                    "type": "string",
                    "enum": [
                        "PolicyNumbers",
                        "ClaimNumbers",
                        "InvoiceNumbers",
                        "QuoteNumbers"
                    ]
                },
                "warningThreshold": {
                    "type": "integer"
                },
                "criticalThreshold": {
                    "type": "integer"
                },
                "disabled": {
                    "type": "boolean"
                }
            },
            "required": [
                "type"
            ]
        },
        "Role": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "tenantId": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "permissions": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "isPermanent": {
                    "type": "boolean"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "RoleInput": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "permissions": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "name"
            ]
        },
        "AssignRoleRequest": {
            "type": "object",
            "properties": {
                "userId": {
                    "type": "string"
                }
            },
            "required": [
                "userId"
            ]
        },
        "HTTPRequestAction": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "verb": {
                    "type": "string"
                },
                "url": {
                    "type": "string"
                },
                "headers": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                },
                "body": {
                    "type": "string"
                }
            },
            "required": [
                "verb",
                "url"
            ]
        },
        "HTTPActionResult": {
            "type": "object",
            "properties": {
                "statusCode": {
                    "type": "integer"
                },
                "body": {
                    "type": "string"
                }
            }
        }
    },
    "tags": [
        {
            "name": "Quotes",
            "description": "Quote aggregates and workflow actions"
        },
        {
            "name": "Policies",
            "description": "Binding, cancellation and reference numbers"
        },
        {
            "name": "Products",
            "description": "Tenant product catalog"
        },
        {
            "name": "Product Features",
            "description": "Per-product feature switches and refund policy"
        },
        {
            "name": "Alerts",
            "description": "Number pool low-stock alerts"
        },
        {
            "name": "Roles",
            "description": "Tenant roles"
        },
        {
            "name": "Automation",
            "description": "Outbound HTTP automation actions"
        }
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Policy Admin API",
	Description:      "Multi-tenant quote and policy administration",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
