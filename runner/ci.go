package runner

import (
	"os"

	"github.com/qagentic/qagentic-go/types"
)

// DetectCI inspects well-known environment variables and returns metadata
// for the CI build the process is running under. Providers are checked in a
// fixed order so that nested environments (e.g. GitLab runners on top of
// Jenkins agents) resolve deterministically. Outside CI it returns a zero
// value whose Provider is empty.
func DetectCI() types.CIMetadata {
	switch {
	case os.Getenv("GITHUB_ACTIONS") != "":
		return types.CIMetadata{
			Provider: "github",
			BuildID:  os.Getenv("GITHUB_RUN_ID"),
			BuildURL: os.Getenv("GITHUB_SERVER_URL") + "/" + os.Getenv("GITHUB_REPOSITORY") + "/actions/runs/" + os.Getenv("GITHUB_RUN_ID"),
			Branch:   os.Getenv("GITHUB_REF_NAME"),
			Commit:   os.Getenv("GITHUB_SHA"),
		}
	case os.Getenv("GITLAB_CI") != "":
		return types.CIMetadata{
			Provider: "gitlab",
			BuildID:  os.Getenv("CI_PIPELINE_ID"),
			BuildURL: os.Getenv("CI_PIPELINE_URL"),
			Branch:   os.Getenv("CI_COMMIT_REF_NAME"),
			Commit:   os.Getenv("CI_COMMIT_SHA"),
		}
	case os.Getenv("JENKINS_URL") != "":
		return types.CIMetadata{
			Provider: "jenkins",
			BuildID:  os.Getenv("BUILD_NUMBER"),
			BuildURL: os.Getenv("BUILD_URL"),
			Branch:   os.Getenv("GIT_BRANCH"),
			Commit:   os.Getenv("GIT_COMMIT"),
		}
	case os.Getenv("TF_BUILD") != "":
		return types.CIMetadata{
			Provider: "azure",
			BuildID:  os.Getenv("BUILD_BUILDID"),
			BuildURL: os.Getenv("SYSTEM_TEAMFOUNDATIONSERVERURI") + os.Getenv("SYSTEM_TEAMPROJECT") + "/_build/results?buildId=" + os.Getenv("BUILD_BUILDID"),
			Branch:   os.Getenv("BUILD_SOURCEBRANCHNAME"),
			Commit:   os.Getenv("BUILD_SOURCEVERSION"),
		}
	case os.Getenv("CIRCLECI") != "":
		return types.CIMetadata{
			Provider: "circleci",
			BuildID:  os.Getenv("CIRCLE_BUILD_NUM"),
			BuildURL: os.Getenv("CIRCLE_BUILD_URL"),
			Branch:   os.Getenv("CIRCLE_BRANCH"),
			Commit:   os.Getenv("CIRCLE_SHA1"),
		}
	case os.Getenv("TRAVIS") != "":
		return types.CIMetadata{
			Provider: "travis",
			BuildID:  os.Getenv("TRAVIS_BUILD_ID"),
			BuildURL: os.Getenv("TRAVIS_BUILD_WEB_URL"),
			Branch:   os.Getenv("TRAVIS_BRANCH"),
			Commit:   os.Getenv("TRAVIS_COMMIT"),
		}
	}
	return types.CIMetadata{}
}
