package ephtile

// Profile binds chunk tags to the record kind they carry. Angular lists the
// column names stored in radians and exposed in degrees.
type Profile struct {
	Name    string
	Tags    []string
	Angular []string
}

// Matches reports whether the profile handles chunks with the given tag.
func (p Profile) Matches(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// StarProfile covers star catalog chunks.
func StarProfile() Profile {
	return Profile{
		Name:    "star",
		Tags:    []string{"STAR", "STRS"},
		Angular: []string{"ra", "de", "pra", "pde"},
	}
}

// DSOProfile covers deep-sky object chunks.
func DSOProfile() Profile {
	return Profile{
		Name:    "dso",
		Tags:    []string{"DSO "},
		Angular: []string{"ra", "de", "smax", "smin", "angl"},
	}
}

// DefaultProfiles returns the built-in star and deep-sky profiles.
func DefaultProfiles() []Profile {
	return []Profile{StarProfile(), DSOProfile()}
}

// ProfileByName looks up a built-in profile.
func ProfileByName(name string) (Profile, bool) {
	for _, p := range DefaultProfiles() {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

func lookupProfile(profiles []Profile, tag string) (Profile, bool) {
	for _, p := range profiles {
		if p.Matches(tag) {
			return p, true
		}
	}
	return Profile{}, false
}
