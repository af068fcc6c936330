// Package account_tools provides MCP tools for the signed-in Google account.
//
//   - account_status: which account is signed in and whether a token and a
//     session are bound
//   - account_auth_url: the consent URL for an account that needs one
//   - account_save_auth_code: completes the consent with the pasted code
//
// The server cannot open a browser or prompt, so a tool that needs consent
// fails and points at account_auth_url. Once the code is saved the refresh
// token is stored and later tokens are minted without interaction.
package account_tools
