// Package api provides the Vortex REST API client.
//
// REST endpoint: https://vortex.restapi.asthatrade.com
//
// Login exchanges client code, password and TOTP for the access token
// the feed session authenticates with. Unauthenticated calls carry the
// application api key in the x-api-key header; authenticated calls use
// a bearer token.
package api
