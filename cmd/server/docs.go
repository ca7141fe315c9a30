// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package main provides the Shelfmark HTTP server
//
// Shelfmark is a book catalog and library management backend with JWT
// authentication, optional TOTP two-factor login, and bulk imports.
//
// @title Shelfmark API
// @version 1.0
// @description Book catalog and library management API
// @description
// @description ## Authentication
// @description
// @description Obtain a token pair via `/api/auth/login`. Accounts with
// @description two-factor authentication enabled receive a temporary token
// @description and must complete the login via `/api/auth/2fa/verify`.
// @description Pass the access token as `Authorization: Bearer <token>`.
// @description
// @description ## Rate Limiting
// @description
// @description Default limits: 60 requests/minute and 1000 requests/hour
// @description per client IP. Rejected requests receive HTTP 429 with a
// @description `Retry-After: 60` header.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-08-29T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/shelfmark/shelfmark/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8000
// @BasePath /api
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token, prefixed with "Bearer ". Obtain via /api/auth/login.
//
// @tag.name Health
// @tag.description Liveness probe
//
// @tag.name Auth
// @tag.description Registration, login, token refresh, logout, and two-factor authentication
//
// @tag.name Books
// @tag.description Book catalog CRUD and bulk import
//
// @tag.name Authors
// @tag.description Author listing
//
// @tag.name Users
// @tag.description Profile and admin user management
package main
