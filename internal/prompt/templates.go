package prompt

// Templates is the immutable template configuration a Constructor is built
// with. Construct once at startup; never mutate afterwards.
type Templates struct {
	SystemRole             string
	CreationInstructions   string
	RefinementInstructions string
	DelimiterStart         string
	DelimiterEnd           string
}

func DefaultTemplates() Templates {
	return Templates{
		SystemRole: `You are a marketing copywriter for a regulated financial services firm.
Every piece of content you produce must satisfy the compliance requirements provided below.
Never promise returns, never omit required risk disclosures, and keep all claims fair and balanced.`,
		CreationInstructions: `Write the requested marketing content from scratch.
Ground tone and structure in the approved examples when any are provided.
Include every disclosure the compliance requirements call for.`,
		RefinementInstructions: `Revise the current draft below according to the request.
Make incremental edits: keep everything that already works and does not conflict with
the request or the compliance requirements. Do not rewrite from scratch.`,
		DelimiterStart: "---BEGIN MARKETING CONTENT---",
		DelimiterEnd:   "---END MARKETING CONTENT---",
	}
}
