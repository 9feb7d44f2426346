// Package campaign holds the static campaign profile: campaign metadata, the
// cast roster, per-episode titles and source URLs, the narrator label used for
// fallback segments, and the speaker alias table.
//
// Profiles are TOML documents. A built-in profile is embedded; callers may
// point paths.campaign_file at their own. A loaded Profile is treated as
// immutable and is passed explicitly to the components that need it.
package campaign
