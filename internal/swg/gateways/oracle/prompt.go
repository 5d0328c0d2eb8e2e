package oracle

import "fmt"

// categoryLabels is the vocabulary offered to the model. The policy table is
// open-ended regardless: whatever label comes back is registered, so an
// off-vocabulary reply degrades gracefully rather than failing.
var categoryLabels = []string{
	"Social Media",
	"News",
	"Video Streaming",
	"E-commerce",
	"Software Development",
	"Cloud Storage",
	"Communication",
	"Search Engine",
	"Phishing",
	"Malware",
	"Suspicious",
	"Encyclopedia",
	"Business",
	"Content Delivery Network",
	"Adult Content",
	"Healthcare",
	"Information Technology",
	"Travel",
	"Education",
	"Entertainment",
	"Shopping",
	"Vehicles",
	"Games",
	"AI/ML",
}

const promptTemplate = `You are a cybersecurity expert helping categorize website domains based on their most likely purpose or threat level.

Use only one of the following category labels:
%s

Guidelines:
- If the domain appears dangerous, contains misspellings, obscure TLDs, or is linked to harmful behavior, choose 'Malware' or 'Phishing'.
- Use 'Malware' for domains likely hosting or distributing malicious software.
- Use 'Phishing' for domains pretending to be legitimate to steal information.
- Use 'Suspicious' for odd or generic domains that might be harmful but aren't clearly phishing or malware.
- Even if the domain is unfamiliar, use your judgment based on common threat indicators or name patterns.
- If still unsure, return 'Unknown'.

Examples:
- google.com -> Search Engine
- instagram.com -> Social Media
- nytimes.com -> News
- github.com -> Software Development
- dropbox.com -> Cloud Storage
- bankofamerica-login.com -> Phishing
- update-your-browser-info.ru -> Malware
- xakjduqw.net -> Suspicious

Domain: %s
Category:`

// categoryPrompt renders the classification prompt for a single domain.
func categoryPrompt(name string) string {
	labels := ""
	for _, l := range categoryLabels {
		labels += "- " + l + "\n"
	}
	return fmt.Sprintf(promptTemplate, labels, name)
}
