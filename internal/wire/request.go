package wire

// Dialect identifies which wire protocol a request was decoded from,
// carried forward so the writer re-encodes in the same dialect.
type Dialect string

const (
	DialectOpenAI    Dialect = "openai"
	DialectAnthropic Dialect = "anthropic"
	DialectOllama    Dialect = "ollama"
)

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single structured tool invocation requested by the model.
// Arguments are always carried as a JSON string per OpenAI convention.
type ToolCall struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments_json"`
}

// Message is one dialect-neutral chat turn.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolChoiceKind selects how the model should pick tools.
type ToolChoiceKind string

const (
	ToolChoiceAuto  ToolChoiceKind = "auto"
	ToolChoiceNone  ToolChoiceKind = "none"
	ToolChoiceNamed ToolChoiceKind = "named"
)

// ToolChoice carries the decoded tool_choice field.
type ToolChoice struct {
	Kind ToolChoiceKind
	Name string // only set when Kind == ToolChoiceNamed
}

// Provenance identifies where a ToolSpec came from.
type ProvenanceKind string

const (
	ProvenanceBuiltin       ProvenanceKind = "builtin"
	ProvenanceExternalPlugin ProvenanceKind = "external_plugin"
	ProvenanceRemoteMCP     ProvenanceKind = "remote_mcp"
)

// Provenance describes the origin of a ToolSpec.
type Provenance struct {
	Kind       ProvenanceKind
	PluginID   string // external_plugin
	Version    string // external_plugin
	ProviderID string // remote_mcp
}

// PermissionPolicy gates tool invocation.
type PermissionPolicy string

const (
	PolicyAuto PermissionPolicy = "auto"
	PolicyAsk  PermissionPolicy = "ask"
	PolicyDeny PermissionPolicy = "deny"
)

// ToolSpec describes one invocable tool: its name, description, JSON
// Schema parameters, permission policy, and provenance.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  Value
	Policy      PermissionPolicy
	Provenance  Provenance
}

// Params holds generation parameters, dialect-neutral.
type Params struct {
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Stop             []string
	Stream           bool
	N                int
	SessionID        string
}

// Request is the Internal Request: the single form every dialect
// decoder produces and the pipeline/writers consume.
type Request struct {
	ModelID    string
	Messages   []Message
	Params     Params
	Tools      []ToolSpec
	ToolChoice ToolChoice
	Dialect    Dialect
}

// ModelSentinel is the sentinel model id meaning "the default/foundation model".
const ModelSentinel = "foundation"
