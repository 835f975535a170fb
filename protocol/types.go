// Package protocol holds the LSP type catalog: the param/result/error
// shapes for the request and notification methods lspconn's façade
// exposes. The protocol design treats this catalog as an external
// collaborator reachable through narrow types rather than something the
// transport layer needs to understand — rpc.Request/Response carry
// json.RawMessage, and only this package's types and the façade ever see
// concrete Go structs for a method's params/result.
package protocol

import "encoding/json"

// Position is a zero-based line/character offset in a text document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a start/end pair of Positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location identifies a Range within a document URI.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// TextDocumentIdentifier names a document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// VersionedTextDocumentIdentifier adds the version a didChange applies to.
type VersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version int `json:"version"`
}

// TextDocumentItem is the full content of a document being opened.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// TextDocumentPositionParams is the common (document, position) pair
// shared by most per-position requests.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// WorkDoneProgressParams carries a work-done progress token. None of the
// param types in this package embed it, and lspconn has no $/progress
// handling of its own: $/progress arrives as an ordinary notification on
// client.Client.Notifications.
type WorkDoneProgressParams struct {
	WorkDoneToken any `json:"workDoneToken,omitempty"`
}

// ---- initialize ----

type InitializeParams struct {
	ProcessID             *int           `json:"processId"`
	RootURI               string         `json:"rootUri,omitempty"`
	InitializationOptions any            `json:"initializationOptions,omitempty"`
	Capabilities           ClientCapabilities `json:"capabilities"`
}

type ClientCapabilities struct {
	TextDocument TextDocumentClientCapabilities `json:"textDocument,omitempty"`
	Workspace    WorkspaceClientCapabilities    `json:"workspace,omitempty"`
}

type TextDocumentClientCapabilities struct {
	Synchronization    SyncClientCapabilities           `json:"synchronization,omitempty"`
	Completion         CompletionClientCapabilities     `json:"completion,omitempty"`
	Hover              HoverClientCapabilities          `json:"hover,omitempty"`
	SignatureHelp      SignatureHelpClientCapabilities  `json:"signatureHelp,omitempty"`
	Definition         DynamicRegOnly                   `json:"definition,omitempty"`
	References         DynamicRegOnly                   `json:"references,omitempty"`
	DocumentHighlight  DynamicRegOnly                   `json:"documentHighlight,omitempty"`
	DocumentSymbol     DocumentSymbolClientCapabilities `json:"documentSymbol,omitempty"`
	CodeAction         DynamicRegOnly                   `json:"codeAction,omitempty"`
	CodeLens           DynamicRegOnly                   `json:"codeLens,omitempty"`
	Rename             DynamicRegOnly                   `json:"rename,omitempty"`
	Formatting         DynamicRegOnly                   `json:"formatting,omitempty"`
	OnTypeFormatting    DynamicRegOnly                  `json:"onTypeFormatting,omitempty"`
}

type DynamicRegOnly struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type SyncClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	WillSave            bool `json:"willSave,omitempty"`
	WillSaveWaitUntil   bool `json:"willSaveWaitUntil,omitempty"`
	DidSave             bool `json:"didSave,omitempty"`
}

type CompletionClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	ContextSupport      bool `json:"contextSupport,omitempty"`
}

type HoverClientCapabilities struct {
	DynamicRegistration bool     `json:"dynamicRegistration,omitempty"`
	ContentFormat       []string `json:"contentFormat,omitempty"`
}

type SignatureHelpClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type DocumentSymbolClientCapabilities struct {
	DynamicRegistration               bool `json:"dynamicRegistration,omitempty"`
	HierarchicalDocumentSymbolSupport bool `json:"hierarchicalDocumentSymbolSupport,omitempty"`
}

type WorkspaceClientCapabilities struct {
	Symbol                DynamicRegOnly `json:"symbol,omitempty"`
	DidChangeWatchedFiles DynamicRegOnly `json:"didChangeWatchedFiles,omitempty"`
	DidChangeConfiguration DynamicRegOnly `json:"didChangeConfiguration,omitempty"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
}

type ServerCapabilities struct {
	TextDocumentSync       any  `json:"textDocumentSync,omitempty"`
	HoverProvider          bool `json:"hoverProvider,omitempty"`
	CompletionProvider     any  `json:"completionProvider,omitempty"`
	SignatureHelpProvider  any  `json:"signatureHelpProvider,omitempty"`
	DefinitionProvider     bool `json:"definitionProvider,omitempty"`
	ReferencesProvider     bool `json:"referencesProvider,omitempty"`
	DocumentHighlightProvider bool `json:"documentHighlightProvider,omitempty"`
	DocumentSymbolProvider bool `json:"documentSymbolProvider,omitempty"`
	WorkspaceSymbolProvider bool `json:"workspaceSymbolProvider,omitempty"`
	CodeActionProvider     any  `json:"codeActionProvider,omitempty"`
	CodeLensProvider       any  `json:"codeLensProvider,omitempty"`
	DocumentRangeFormattingProvider bool `json:"documentRangeFormattingProvider,omitempty"`
	DocumentOnTypeFormattingProvider any `json:"documentOnTypeFormattingProvider,omitempty"`
	RenameProvider         any  `json:"renameProvider,omitempty"`
}

// ---- didOpen/didChange/didClose/didSave ----

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier   `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type TextDocumentContentChangeEvent struct {
	Range       *Range `json:"range,omitempty"`
	RangeLength *int   `json:"rangeLength,omitempty"`
	Text        string `json:"text"`
}

type DidSaveTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Text         *string                `json:"text,omitempty"`
}

// ---- completion ----

type CompletionParams struct {
	TextDocumentPositionParams
	Context *CompletionContext `json:"context,omitempty"`
}

type CompletionContext struct {
	TriggerKind      int     `json:"triggerKind"`
	TriggerCharacter *string `json:"triggerCharacter,omitempty"`
}

type CompletionItem struct {
	Label            string          `json:"label"`
	Kind             int             `json:"kind,omitempty"`
	Detail           string          `json:"detail,omitempty"`
	Documentation    json.RawMessage `json:"documentation,omitempty"`
	InsertText       string          `json:"insertText,omitempty"`
	TextEdit         *TextEdit       `json:"textEdit,omitempty"`
	Data             json.RawMessage `json:"data,omitempty"`
}

type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// CompletionResult models the result of textDocument/completion, which per
// the LSP spec is CompletionItem[] | CompletionList | null; Items()
// normalizes both shapes.
type CompletionResult struct {
	list        *CompletionList
	items       []CompletionItem
}

// UnmarshalJSON discriminates on the JSON shape: an array is decoded as
// CompletionItem[], any other non-null value as a CompletionList.
func (r *CompletionResult) UnmarshalJSON(data []byte) error {
	trimmed := trimSpaceBytes(data)
	if string(trimmed) == "null" {
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []CompletionItem
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		r.items = items
		return nil
	}
	var list CompletionList
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	r.list = &list
	return nil
}

// Items returns the completion items regardless of which wire shape the
// server used.
func (r *CompletionResult) Items() []CompletionItem {
	if r.list != nil {
		return r.list.Items
	}
	return r.items
}

func trimSpaceBytes(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && isJSONSpace(b[i]) {
		i++
	}
	for j > i && isJSONSpace(b[j-1]) {
		j--
	}
	return b[i:j]
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

type CompletionItemResolveParams = CompletionItem

// ---- hover ----

type HoverParams struct {
	TextDocumentPositionParams
}

type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// ---- signatureHelp ----

type SignatureHelpParams struct {
	TextDocumentPositionParams
}

type SignatureHelp struct {
	Signatures      []SignatureInformation `json:"signatures"`
	ActiveSignature int                    `json:"activeSignature,omitempty"`
	ActiveParameter int                    `json:"activeParameter,omitempty"`
}

type SignatureInformation struct {
	Label         string                 `json:"label"`
	Documentation json.RawMessage        `json:"documentation,omitempty"`
	Parameters    []ParameterInformation `json:"parameters,omitempty"`
}

type ParameterInformation struct {
	Label         json.RawMessage `json:"label"`
	Documentation json.RawMessage `json:"documentation,omitempty"`
}

// ---- definition / declaration ----

type DefinitionParams struct {
	TextDocumentPositionParams
}

// LocationResult models Location | Location[] | null, common to
// definition/declaration/typeDefinition/implementation results.
type LocationResult struct {
	locations []Location
}

func (r *LocationResult) UnmarshalJSON(data []byte) error {
	trimmed := trimSpaceBytes(data)
	if string(trimmed) == "null" {
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(data, &r.locations)
	}
	var single Location
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	r.locations = []Location{single}
	return nil
}

func (r *LocationResult) Locations() []Location { return r.locations }

// ---- references ----

type ReferenceParams struct {
	TextDocumentPositionParams
	Context ReferenceContext `json:"context"`
}

type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

// ---- documentHighlight ----

type DocumentHighlightParams struct {
	TextDocumentPositionParams
}

type DocumentHighlight struct {
	Range Range `json:"range"`
	Kind  int   `json:"kind,omitempty"`
}

// ---- documentSymbol ----

type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type DocumentSymbol struct {
	Name           string           `json:"name"`
	Detail         string           `json:"detail,omitempty"`
	Kind           SymbolKind       `json:"kind"`
	Deprecated     bool             `json:"deprecated,omitempty"`
	Range          Range            `json:"range"`
	SelectionRange Range            `json:"selectionRange"`
	Children       []DocumentSymbol `json:"children,omitempty"`
}

type SymbolKind int

const (
	SymbolKindFile SymbolKind = iota + 1
	SymbolKindModule
	SymbolKindNamespace
	SymbolKindPackage
	SymbolKindClass
	SymbolKindMethod
	SymbolKindProperty
	SymbolKindField
	SymbolKindConstructor
	SymbolKindEnum
	SymbolKindInterface
	SymbolKindFunction
	SymbolKindVariable
	SymbolKindConstant
	SymbolKindString
	SymbolKindNumber
	SymbolKindBoolean
	SymbolKindArray
	SymbolKindObject
	SymbolKindKey
	SymbolKindNull
	SymbolKindEnumMember
	SymbolKindStruct
	SymbolKindEvent
	SymbolKindOperator
	SymbolKindTypeParameter
)

// ---- workspace/symbol ----

type WorkspaceSymbolParams struct {
	Query string `json:"query"`
}

type WorkspaceSymbol struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}

// ---- codeAction ----

type CodeActionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Context      CodeActionContext      `json:"context"`
}

type CodeActionContext struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	Only        []string     `json:"only,omitempty"`
}

type CodeAction struct {
	Title       string          `json:"title"`
	Kind        string          `json:"kind,omitempty"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
	Edit        *WorkspaceEdit  `json:"edit,omitempty"`
	Command     *Command        `json:"command,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

type Command struct {
	Title     string          `json:"title"`
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ---- codeLens ----

type CodeLensParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type CodeLens struct {
	Range   Range           `json:"range"`
	Command *Command        `json:"command,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type CodeLensResolveParams = CodeLens

// ---- formatting ----

type DocumentRangeFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Options      FormattingOptions      `json:"options"`
}

type DocumentOnTypeFormattingParams struct {
	TextDocumentPositionParams
	Ch      string            `json:"ch"`
	Options FormattingOptions `json:"options"`
}

type FormattingOptions struct {
	TabSize      int  `json:"tabSize"`
	InsertSpaces bool `json:"insertSpaces"`
}

type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// ---- rename ----

type RenameParams struct {
	TextDocumentPositionParams
	NewName string `json:"newName"`
}

type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes,omitempty"`
}

// ---- diagnostics / publishDiagnostics ----

type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity,omitempty"`
	Code     any    `json:"code,omitempty"`
	Source   string `json:"source,omitempty"`
	Message  string `json:"message"`
}

type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Version     int          `json:"version,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// ---- file watching ----

type DidChangeWatchedFilesParams struct {
	Changes []FileEvent `json:"changes"`
}

type FileEvent struct {
	URI  string         `json:"uri"`
	Type FileChangeType `json:"type"`
}

type FileChangeType int

const (
	FileChangeCreated FileChangeType = 1
	FileChangeChanged FileChangeType = 2
	FileChangeDeleted FileChangeType = 3
)

// ---- workspace/didChangeConfiguration ----

type DidChangeConfigurationParams struct {
	Settings any `json:"settings"`
}

// ---- $/cancelRequest ----

type CancelParams struct {
	ID string `json:"id"`
}

// ---- shutdown / exit ----

type ShutdownParams struct{}
type ExitParams struct{}

// ---- $/progress (downgraded to a plain notification by the façade) ----

type ProgressParams struct {
	Token any           `json:"token"`
	Value ProgressValue `json:"value"`
}

type ProgressValue struct {
	Kind        string `json:"kind"`
	Title       string `json:"title,omitempty"`
	Message     string `json:"message,omitempty"`
	Percentage  *int   `json:"percentage,omitempty"`
	Cancellable bool   `json:"cancellable,omitempty"`
}

// ---- window/showMessage ----

type ShowMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}
