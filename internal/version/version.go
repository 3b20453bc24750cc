package version

// Version is the current version of the InterviewPro CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/ravipandeydu/interview-pro-sub002/internal/version.Version=v1.0.0'"
var Version = "dev"
