// Package main CoursePay Server API
//
//	@title						CoursePay Server API
//	@version					1.0
//	@description				Payment order lifecycle API for course enrollments
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Order
//	@tag.description			Payment orders, captures, refunds and voids
//
//	@tag.name					Admin
//	@tag.description			Settlement and expiry reconciliation
package main
