package azdo

// Capability is one of the fixed set of sub-APIs a Builder hands out.
type Capability int

const (
	CapabilityCore Capability = iota
	CapabilityGit
	CapabilityWorkItemTracking
	CapabilityBuild
	CapabilityTest
	CapabilityRelease
	CapabilityTaskAgent
	CapabilityTask
	CapabilityProfile
	CapabilityPipelines
	CapabilityWiki
	CapabilitySearch
)

// Capabilities lists every capability in declaration order.
var Capabilities = []Capability{
	CapabilityCore,
	CapabilityGit,
	CapabilityWorkItemTracking,
	CapabilityBuild,
	CapabilityTest,
	CapabilityRelease,
	CapabilityTaskAgent,
	CapabilityTask,
	CapabilityProfile,
	CapabilityPipelines,
	CapabilityWiki,
	CapabilitySearch,
}

var capabilityInfo = map[Capability]struct {
	name string
	area string
}{
	CapabilityCore:             {"Core", "core"},
	CapabilityGit:              {"Git", "git"},
	CapabilityWorkItemTracking: {"Work Item Tracking", "wit"},
	CapabilityBuild:            {"Build", "build"},
	CapabilityTest:             {"Test", "test"},
	CapabilityRelease:          {"Release", "release"},
	CapabilityTaskAgent:        {"Task Agent", "distributedtask"},
	CapabilityTask:             {"Task", "distributedtask"},
	CapabilityProfile:          {"Profile", "profile"},
	CapabilityPipelines:        {"Pipelines", "pipelines"},
	CapabilityWiki:             {"Wiki", "wiki"},
	CapabilitySearch:           {"Search", "search"},
}

// String returns the display name used in error messages ("Work Item Tracking").
func (c Capability) String() string {
	if info, ok := capabilityInfo[c]; ok {
		return info.name
	}
	return "Unknown"
}

// Area returns the resource area name the capability is served from.
func (c Capability) Area() string {
	return capabilityInfo[c].area
}
