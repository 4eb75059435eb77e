package service

import "embed"

// Canned responses served in the SANDBOX environment so integrations can be
// developed without live backend access.
//
//go:embed fixtures/*.json
var fixturesFS embed.FS

func fixture(name string) []byte {
	data, err := fixturesFS.ReadFile("fixtures/" + name + ".json")
	if err != nil {
		panic("sphereone: missing embedded fixture " + name)
	}
	return data
}
