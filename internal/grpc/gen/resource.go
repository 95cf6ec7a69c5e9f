package entitlementpb

//go:generate protoc --proto_path=../proto --go_out=. --go_opt=paths=source_relative --go-grpc_out=. --go-grpc_opt=paths=source_relative entitlement.proto

// Значения CheckRequest.Resource.
const (
	ResourceNone  = ""
	ResourceForum = "forum"
	ResourceGroup = "group"
	ResourceCall  = "call"
)
