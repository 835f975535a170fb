package client

import (
	"context"

	"github.com/lspconn/lspconn/protocol"
)

// Typed request/notification methods. Each request method submits its
// params, awaits the matching response, and decodes the result — or
// returns a *rpc.ResponseError (via errors.As) if the server answered with
// a JSON-RPC error, per the façade's error-handling contract.

// Initialize performs the LSP handshake. Callers are expected to follow a
// successful Initialize with the "initialized" notification (see
// Initialized) before issuing any other request, per the protocol.
func (c *Client) Initialize(ctx context.Context, params protocol.InitializeParams) (*protocol.InitializeResult, error) {
	var result protocol.InitializeResult
	if _, err := c.Call(ctx, "initialize", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Initialized sends the "initialized" notification that must follow a
// successful Initialize call.
func (c *Client) Initialized(ctx context.Context) error {
	return c.Notify(ctx, "initialized", struct{}{})
}

// Shutdown asks the server to prepare for exit without actually exiting.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.Call(ctx, "shutdown", protocol.ShutdownParams{}, nil)
	return err
}

// Exit notifies the server to exit; the server is expected to terminate
// its own process after receiving this.
func (c *Client) Exit(ctx context.Context) error {
	return c.Notify(ctx, "exit", protocol.ExitParams{})
}

// Completion requests completions at a position. The result can be
// CompletionItem[] or CompletionList on the wire; protocol.CompletionResult
// normalizes both — call its Items method.
func (c *Client) Completion(ctx context.Context, params protocol.CompletionParams) (*protocol.CompletionResult, error) {
	var result protocol.CompletionResult
	if _, err := c.Call(ctx, "textDocument/completion", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResolveCompletionItem asks the server to fill in additional detail
// (documentation, a text edit) for a completion item returned earlier
// with resolveProvider information pending.
func (c *Client) ResolveCompletionItem(ctx context.Context, item protocol.CompletionItem) (*protocol.CompletionItem, error) {
	var result protocol.CompletionItem
	if _, err := c.Call(ctx, "completionItem/resolve", item, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Hover requests hover information at a position.
func (c *Client) Hover(ctx context.Context, params protocol.HoverParams) (*protocol.Hover, error) {
	var result protocol.Hover
	if _, err := c.Call(ctx, "textDocument/hover", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SignatureHelp requests active-signature information at a position.
func (c *Client) SignatureHelp(ctx context.Context, params protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	var result protocol.SignatureHelp
	if _, err := c.Call(ctx, "textDocument/signatureHelp", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Definition requests the definition location(s) of the symbol at a
// position. The wire result can be Location, Location[], or null;
// protocol.LocationResult normalizes all three — call its Locations method.
func (c *Client) Definition(ctx context.Context, params protocol.DefinitionParams) (*protocol.LocationResult, error) {
	var result protocol.LocationResult
	if _, err := c.Call(ctx, "textDocument/definition", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// References finds all references to the symbol at a position.
func (c *Client) References(ctx context.Context, params protocol.ReferenceParams) ([]protocol.Location, error) {
	var result []protocol.Location
	if _, err := c.Call(ctx, "textDocument/references", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DocumentHighlight finds highlight ranges for the symbol at a position.
func (c *Client) DocumentHighlight(ctx context.Context, params protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	var result []protocol.DocumentHighlight
	if _, err := c.Call(ctx, "textDocument/documentHighlight", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DocumentSymbol lists all symbols in a document.
func (c *Client) DocumentSymbol(ctx context.Context, params protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, error) {
	var result []protocol.DocumentSymbol
	if _, err := c.Call(ctx, "textDocument/documentSymbol", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// WorkspaceSymbol searches for symbols matching query across the
// workspace.
func (c *Client) WorkspaceSymbol(ctx context.Context, params protocol.WorkspaceSymbolParams) ([]protocol.WorkspaceSymbol, error) {
	var result []protocol.WorkspaceSymbol
	if _, err := c.Call(ctx, "workspace/symbol", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CodeAction requests available code actions for a range.
func (c *Client) CodeAction(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	var result []protocol.CodeAction
	if _, err := c.Call(ctx, "textDocument/codeAction", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CodeLens requests code lenses for a document.
func (c *Client) CodeLens(ctx context.Context, params protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	var result []protocol.CodeLens
	if _, err := c.Call(ctx, "textDocument/codeLens", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveCodeLens fills in a code lens's command.
func (c *Client) ResolveCodeLens(ctx context.Context, lens protocol.CodeLens) (*protocol.CodeLens, error) {
	var result protocol.CodeLens
	if _, err := c.Call(ctx, "codeLens/resolve", lens, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RangeFormatting requests formatting edits for a range.
func (c *Client) RangeFormatting(ctx context.Context, params protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	var result []protocol.TextEdit
	if _, err := c.Call(ctx, "textDocument/rangeFormatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// OnTypeFormatting requests formatting edits triggered by typing a
// specific character (e.g. a closing brace).
func (c *Client) OnTypeFormatting(ctx context.Context, params protocol.DocumentOnTypeFormattingParams) ([]protocol.TextEdit, error) {
	var result []protocol.TextEdit
	if _, err := c.Call(ctx, "textDocument/onTypeFormatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Rename requests the workspace edit that renames the symbol at a
// position to newName.
func (c *Client) Rename(ctx context.Context, params protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	var result protocol.WorkspaceEdit
	if _, err := c.Call(ctx, "textDocument/rename", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ---- client-origin notifications ----

// CancelRequest asks the server to cancel the in-flight request with the
// given id. Cancellation is advisory — the server may ignore it — and
// dropping a Call's wait without sending this leaves the request running
// server-side with its eventual response simply discarded by the
// correlator (its id is removed from the pending set when the wait ends).
func (c *Client) CancelRequest(ctx context.Context, id string) error {
	return c.Notify(ctx, "$/cancelRequest", protocol.CancelParams{ID: id})
}

// DidChangeConfiguration notifies the server of a settings change.
func (c *Client) DidChangeConfiguration(ctx context.Context, settings any) error {
	return c.Notify(ctx, "workspace/didChangeConfiguration", protocol.DidChangeConfigurationParams{Settings: settings})
}

// DidChange notifies the server that a document's content changed.
func (c *Client) DidChange(ctx context.Context, params protocol.DidChangeTextDocumentParams) error {
	return c.Notify(ctx, "textDocument/didChange", params)
}

// DidChangeWatchedFiles notifies the server of filesystem changes the
// client is watching on the server's behalf.
func (c *Client) DidChangeWatchedFiles(ctx context.Context, params protocol.DidChangeWatchedFilesParams) error {
	return c.Notify(ctx, "workspace/didChangeWatchedFiles", params)
}

// DidClose notifies the server that a document was closed.
func (c *Client) DidClose(ctx context.Context, uri string) error {
	return c.Notify(ctx, "textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
}

// DidOpen notifies the server that a document was opened with the given
// full text content.
func (c *Client) DidOpen(ctx context.Context, uri, languageID, text string, version int) error {
	return c.Notify(ctx, "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    version,
			Text:       text,
		},
	})
}

// DidSave notifies the server that a document was saved.
func (c *Client) DidSave(ctx context.Context, uri string, text *string) error {
	return c.Notify(ctx, "textDocument/didSave", protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Text:         text,
	})
}
