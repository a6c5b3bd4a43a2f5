// Package jwt issues and verifies the login token: a signed claim set carrying the account id
// and display name, valid for six hours by default.
package jwt
