// Package protocol defines the message contract spoken across the engine
// boundary. The engine lives in an isolated execution context reachable only
// by message passing; every request that expects a reply carries a
// caller-chosen correlation id, and every reply carries that same id back.
package protocol

// ContractVersion is the integer compatibility version of this message
// contract. The engine announces its version in the ready message; callers
// should check it before sending requests.
const ContractVersion = 3

// EngineNodeDef is the engine-visible projection of one evaluable node. It
// carries no position and no group or annotation information.
type EngineNodeDef struct {
	ID            string         `json:"id"`
	OperationKind string         `json:"operationKind"`
	Data          map[string]any `json:"data,omitempty"`
}

// EngineEdgeDef is the engine-visible projection of one connection.
type EngineEdgeDef struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// EngineSnapshot is the full versioned input shape consumed by the engine.
type EngineSnapshot struct {
	Version int             `json:"version"`
	Nodes   []EngineNodeDef `json:"nodes"`
	Edges   []EngineEdgeDef `json:"edges"`
}

// PatchOpKind discriminates the patch operation union.
type PatchOpKind string

const (
	OpAddNode        PatchOpKind = "addNode"
	OpRemoveNode     PatchOpKind = "removeNode"
	OpUpdateNodeData PatchOpKind = "updateNodeData"
	OpAddEdge        PatchOpKind = "addEdge"
	OpRemoveEdge     PatchOpKind = "removeEdge"
)

// PatchOp is one atomic instruction transforming the engine's persistent
// graph. Exactly the fields matching Kind are meaningful.
type PatchOp struct {
	Kind   PatchOpKind    `json:"kind"`
	Node   *EngineNodeDef `json:"node,omitempty"`
	NodeID string         `json:"nodeId,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	Edge   *EngineEdgeDef `json:"edge,omitempty"`
	EdgeID string         `json:"edgeId,omitempty"`
}

// AddNode builds an addNode operation.
func AddNode(node EngineNodeDef) PatchOp {
	return PatchOp{Kind: OpAddNode, Node: &node}
}

// RemoveNode builds a removeNode operation.
func RemoveNode(nodeID string) PatchOp {
	return PatchOp{Kind: OpRemoveNode, NodeID: nodeID}
}

// UpdateNodeData builds an updateNodeData operation.
func UpdateNodeData(nodeID string, data map[string]any) PatchOp {
	return PatchOp{Kind: OpUpdateNodeData, NodeID: nodeID, Data: data}
}

// AddEdge builds an addEdge operation.
func AddEdge(edge EngineEdgeDef) PatchOp {
	return PatchOp{Kind: OpAddEdge, Edge: &edge}
}

// RemoveEdge builds a removeEdge operation.
func RemoveEdge(edgeID string) PatchOp {
	return PatchOp{Kind: OpRemoveEdge, EdgeID: edgeID}
}

// RequestKind names a request message.
type RequestKind string

const (
	ReqLoadSnapshot    RequestKind = "loadSnapshot"
	ReqApplyPatch      RequestKind = "applyPatch"
	ReqSetInput        RequestKind = "setInput"
	ReqRegisterDataset RequestKind = "registerDataset"
	ReqReleaseDataset  RequestKind = "releaseDataset"
	ReqGetStats        RequestKind = "getStats"
	ReqCancel          RequestKind = "cancel"
)

// SetInput changes one input value on one node without a structural patch.
type SetInput struct {
	NodeID string  `json:"nodeId"`
	Input  string  `json:"input"`
	Value  float64 `json:"value"`
}

// Dataset is a large numeric buffer registered out of band and referenced by
// id from node data. Once registered it is owned by the engine until the same
// caller releases it.
type Dataset struct {
	ID      string      `json:"id"`
	Columns []string    `json:"columns,omitempty"`
	Rows    [][]float64 `json:"rows,omitempty"`
}

// Request is one message sent to the engine.
type Request struct {
	Kind          RequestKind     `json:"kind"`
	CorrelationID uint64          `json:"correlationId"`
	Snapshot      *EngineSnapshot `json:"snapshot,omitempty"`
	Patch         []PatchOp       `json:"patch,omitempty"`
	SetInput      *SetInput       `json:"setInput,omitempty"`
	Dataset       *Dataset        `json:"dataset,omitempty"`
	DatasetID     string          `json:"datasetId,omitempty"`
	CancelTarget  uint64          `json:"cancelTarget,omitempty"`
}

// ResponseKind names a response message.
type ResponseKind string

const (
	RespReady       ResponseKind = "ready"
	RespResult      ResponseKind = "result"
	RespIncremental ResponseKind = "incremental"
	RespError       ResponseKind = "error"
	RespProgress    ResponseKind = "progress"
	RespStats       ResponseKind = "stats"
)

// DiagnosticLevel grades a diagnostic.
type DiagnosticLevel string

const (
	LevelInfo    DiagnosticLevel = "info"
	LevelWarning DiagnosticLevel = "warning"
	LevelError   DiagnosticLevel = "error"
)

// Diagnostic is one engine-reported finding, optionally tied to a node.
type Diagnostic struct {
	NodeID  string          `json:"nodeId,omitempty"`
	Level   DiagnosticLevel `json:"level"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// Ready is sent once after the engine finishes initializing.
type Ready struct {
	Operations      []string `json:"operations"`
	EngineVersion   string   `json:"engineVersion"`
	ContractVersion int      `json:"contractVersion"`
}

// Result is the terminal payload of a full snapshot load or a setInput.
type Result struct {
	Values        map[string]Value `json:"values"`
	Diagnostics   []Diagnostic     `json:"diagnostics,omitempty"`
	ElapsedTimeUs int64            `json:"elapsedTimeUs"`
	Partial       bool             `json:"partial,omitempty"`
}

// Incremental is the terminal payload of an applyPatch. ChangedValues carries
// only values that changed; unaffected nodes are not mentioned.
type Incremental struct {
	ChangedValues  map[string]Value `json:"changedValues"`
	Diagnostics    []Diagnostic     `json:"diagnostics,omitempty"`
	ElapsedTimeUs  int64            `json:"elapsedTimeUs"`
	EvaluatedCount int              `json:"evaluatedCount"`
	TotalCount     int              `json:"totalCount"`
	Partial        bool             `json:"partial,omitempty"`
}

// Progress is a non-terminal notification during a long evaluation.
type Progress struct {
	Evaluated int `json:"evaluated"`
	Estimated int `json:"estimated"`
}

// Stats answers a getStats request.
type Stats struct {
	NodeCount    int `json:"nodeCount"`
	EdgeCount    int `json:"edgeCount"`
	DatasetCount int `json:"datasetCount"`
	Evaluations  int `json:"evaluations"`
}

// ErrorInfo carries a protocol-level failure verbatim.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is one message received from the engine.
type Response struct {
	Kind          ResponseKind `json:"kind"`
	CorrelationID uint64       `json:"correlationId"`
	Ready         *Ready       `json:"ready,omitempty"`
	Result        *Result      `json:"result,omitempty"`
	Incremental   *Incremental `json:"incremental,omitempty"`
	Error         *ErrorInfo   `json:"error,omitempty"`
	Progress      *Progress    `json:"progress,omitempty"`
	Stats         *Stats       `json:"stats,omitempty"`
}

// Terminal reports whether the response concludes its request. Progress
// notifications may precede the terminal reply zero or more times.
func (r Response) Terminal() bool {
	return r.Kind != RespProgress
}
