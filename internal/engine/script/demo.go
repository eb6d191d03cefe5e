package script

import _ "embed"

//go:embed stories/demo.story
var demoStory []byte

// DemoFileName is the file name the bundled demo story is written
// under when it is materialized on disk.
const DemoFileName = "demo.story"

// DemoStory returns the bundled demo story.
func DemoStory() []byte {
	return append([]byte(nil), demoStory...)
}
