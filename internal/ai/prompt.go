package ai

import "fmt"

const systemPrompt = "You review work-log descriptions for a project tracker. " +
	"Judge only the QUALITY of the description: can a reader tell what the " +
	"person actually did? Specificity matters more than length; one complex " +
	"task described concretely is fine. Reply with JSON only."

func userPrompt(req Request) string {
	return fmt.Sprintf(`=== DATA ===
Task: %q
Position: %s
Hours logged: %.1f
Work description: %q

=== YOUR JOB ===
Flag only clearly bad descriptions where it is impossible to tell what the
person worked on. Concrete actions, tools, and objects of work are good;
single-word entries ("worked", "did stuff") or a bare repeat of the task
name are bad. Be lenient: more logged hours call for proportionally more
substance, but professional jargon and terse technical notes are fine.

Scores 0-10 each: realism_score (could the described work plausibly fill
the logged hours?), concrete_score (how specific is the description?),
total_score (overall). Verdict FAIL only when the description carries
almost no information for the logged time; otherwise PASS.

Reply with exactly this JSON object and nothing else:
{"realism_score": 0, "concrete_score": 0, "total_score": 0.0, "verdict": "PASS", "reason": "one short sentence"}`,
		req.TaskName, position(req.Position), req.Hours, req.Comment)
}

func position(p string) string {
	if p == "" {
		return "unknown"
	}
	return p
}
