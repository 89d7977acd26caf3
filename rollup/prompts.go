package rollup

// Prompts for the three structured-output call shapes. Instructions carry the
// role and rules; the per-call payload goes into the user message.

const chunkSystemPrompt = `You are an expert real-estate review analyst.
You will receive a chunk of user reviews for ONE residential project.
Summarize ONLY what is present in the reviews. Do not invent facts.
Be concise, neutral, and specific. Keep lists short and deduplicated.`

const reduceSystemPrompt = `You are an expert real-estate review analyst.
You will receive per-chunk summaries for ONE residential project.
Merge them into a single project-level summary grounded ONLY in the chunks.
Do not invent facts. Stay neutral and factual.
The overall_summary must be 150-250 words. The headline must be at most 90 characters.
Deduplicate across chunks; keep each list entry short and specific.`

const tagSystemPrompt = `You are tagging individual real-estate user reviews for display in a UI.
For EACH input review, produce EXACTLY 3 short tags capturing its key themes.
Tags must be grounded in the review text only. Good tags are 1-3 words,
Title Case, specific (e.g. "Good Connectivity", "Construction Delays").
Return one output item per input review, echoing its review_uid exactly.`

// strictTagSuffix is appended on single-review regeneration, where the
// length ceiling is enforced by prompt as well as by post-processing.
const strictTagSuffix = "\nSTRICT: Each tag MUST be <= 28 characters. No exceptions."
