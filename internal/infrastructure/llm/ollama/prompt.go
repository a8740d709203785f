package ollama

import "fmt"

var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"subject":        map[string]any{"type": "string"},
		"author":         map[string]any{"type": "string"},
		"type":           map[string]any{"type": "string", "enum": []string{"ACA", "ADM", "CRE", "FIN", "LEG", "PER", "SAS"}},
		"year_processed": map[string]any{"type": "string"},
		"funding":        map[string]any{"type": []string{"string", "null"}},
	},
	"required": []string{"subject", "author", "type", "year_processed"},
}

var metadataSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":             map[string]any{"type": []string{"string", "null"}},
		"authors":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"presenting_author": map[string]any{"type": []string{"string", "null"}},
		"conference":        map[string]any{"type": []string{"string", "null"}},
		"conference_date":   map[string]any{"type": []string{"string", "null"}},
		"location":          map[string]any{"type": []string{"string", "null"}},
		"abstract":          map[string]any{"type": []string{"string", "null"}},
		"keywords":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"title", "authors", "presenting_author", "conference", "conference_date", "location", "abstract", "keywords"},
}

func buildClassificationPrompt(text, displayName string) string {
	return fmt.Sprintf(`%s

File name: %s

QUERY: You are tasked with identifying the subject, classification type, author, year processed, and funding (if applicable) from the given document.

Instructions:

Subject. The subject should be a very concise summary of the document's main purpose or content. If the subject is not clearly stated in the content, generate a concise and accurate summary based on the information provided. Avoid using the filename directly unless no other content is available to form a summary. Maintain proper capitalization. Avoid characters that cannot be used in a file name.

Author. Identify the author based on the content of the document, starting with the signature block. If no name is signed, consider names in the body associated with academic credentials, roles or research papers. Format a full name as Lastname Suffix INITIALS, for example "Gian Paolo Plariza Jr." becomes "Plariza Jr. GP". If only a title or role is given, write Unknown.

Year Processed. Take the year of the first full date at the beginning of the text, for example 2024 for "18 November 2024". Do not use years from other parts of the document unless no date is found at the top.

Classification Type. Use exactly one of these seven codes:
    ACA : Academic (Academic Calendar, Class Records, Class Schedules, Course Outlines, Grades, Honorific Scholars, Student Records)
    ADM : Administration and Management (Request for Travel, Equipment Usage, Room Usage, Research/Admin/Extension Load Credit, Research Proposals not yet approved, International Publication Award Applications, Letter Communications, OPCR, Certifications)
    CRE : Creative Work, Research, and Extension (Approved Research Projects with approved MOA or LIB, Financial and Liquidation Reports for in-house grants, Progress Reports, Terminal Reports, Project Extension Requests, Line-Item Budget)
    FIN : Financial (Payment to suppliers, Purchase Order, Budget Utilization, Salaries, Budget Proposals, Purchase Request, Abstract of Price Quotations, Ledger, RIS, IAR, ICS, PAR)
    LEG : Legal (MOU, MOA, NDA/NDU, SALN, other documents needing notarization)
    PER : Personnel (Accomplishment Reports, COS, IPCR, PES, DTR, Notice of Temporary Appointments, Additional Assignments)
    SAS : Student Affairs and Services (Student Assistant Files, Internships)

If the document is CRE, set funding to INT (internally funded) or EXT (externally funded). If it is not CRE, funding must be null. Write only the three letter code for type and funding.

/no_think
`, text, displayName)
}

func buildMetadataPrompt(text string) string {
	return fmt.Sprintf(`%s

QUERY: You are a parsing assistant. Extract the following fields from the research paper above and return them strictly as JSON:
{
    "title": "...",
    "authors": [...],
    "presenting_author": "...",
    "conference": "...",
    "conference_date": "...",
    "location": "...",
    "abstract": "...",
    "keywords": [...]
}
The title is usually a markdown heading, directly followed by the authors, abstract and keywords. The abstract usually starts with "Abstract:" and the keywords with "Keywords:".

When a field is not stated in the document, leave it null.

/no_think
`, text)
}
