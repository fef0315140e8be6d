package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Insight is one line of the class-wide guidance. Heading lines group
// the indented action lines that follow them.
type Insight struct {
	Heading bool
	Text    string
}

// ClassInsights builds the hyper-specific strategic insights for
// managing this particular multi-grade class.
func ClassInsights(ctx context.Context, store *ClassStore) ([]Insight, error) {
	total := store.Len()

	gradeStudents, err := store.GradeStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("grade groups: %w", err)
	}
	peerHelpers, err := store.PeerHelpers(ctx)
	if err != nil {
		return nil, fmt.Errorf("peer helpers: %w", err)
	}
	urgent, err := store.NeedUrgentSupport(ctx)
	if err != nil {
		return nil, fmt.Errorf("urgent support: %w", err)
	}
	individual, err := store.IndividualAttention(ctx)
	if err != nil {
		return nil, fmt.Errorf("individual attention: %w", err)
	}
	shortAttention, err := store.ShortAttention(ctx)
	if err != nil {
		return nil, fmt.Errorf("short attention: %w", err)
	}
	issues, err := store.HighSeverityIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("severity issues: %w", err)
	}

	var insights []Insight
	heading := func(text string) { insights = append(insights, Insight{Heading: true, Text: text}) }
	line := func(format string, args ...interface{}) {
		insights = append(insights, Insight{Text: fmt.Sprintf(format, args...)})
	}

	heading("IMMEDIATE CLASSROOM SETUP (Implement Tomorrow):")
	line("TOTAL CLASS SIZE: %d students requiring %d individual support stations", total, len(individual))

	for _, grade := range sortedKeys(gradeStudents) {
		students := gradeStudents[grade]
		line("%s: %d students (%s) - Seat together in rows 2-3", grade, len(students), strings.Join(students, ", "))
	}

	if len(peerHelpers) > 0 && len(urgent) > 0 {
		heading("PEER TUTORING SYSTEM (Start This Week):")
		line("TUTORS AVAILABLE: %s can help struggling classmates", strings.Join(peerHelpers, ", "))
		line("STUDENTS NEEDING HELP: %s require daily support", strings.Join(urgent, ", "))
		for i, helper := range peerHelpers {
			if i >= len(urgent) {
				break
			}
			line("PAIR: %s (tutor) + %s (learner) - Meet Tuesdays & Thursdays 11:30-11:50 AM, back-left corner desk", helper, urgent[i])
		}
	}

	heading("DAILY SCHEDULE OPTIMIZATION (Exact Times):")
	if len(individual) > 0 {
		first := individual
		if len(first) > 3 {
			first = first[:3]
		}
		line("10:15-10:30 AM: Individual support time for %s while others do independent work", strings.Join(first, ", "))
		if len(individual) > 3 {
			line("2:45-3:00 PM: Individual support time for %s while others clean classroom", strings.Join(individual[3:], ", "))
		}
	}

	for _, subject := range sortedKeys(issues) {
		subjectIssues := issues[subject]
		students := make([]string, 0, len(subjectIssues))
		seen := make(map[string]bool)
		for _, issue := range subjectIssues {
			if !seen[issue.Student] {
				students = append(students, issue.Student)
				seen[issue.Student] = true
			}
		}
		heading(fmt.Sprintf("URGENT %s INTERVENTIONS:", strings.ToUpper(subject)))
		line("STUDENTS NEEDING IMMEDIATE HELP: %s", strings.Join(students, ", "))
		line("ACTION: Dedicate first 15 minutes of %s class to small group instruction with these students", subject)
		line("LOCATION: Front corner of classroom, use visual aids and manipulatives")
	}

	if len(shortAttention) > 0 {
		heading("ATTENTION SPAN MANAGEMENT:")
		line("SHORT ATTENTION (%s): Change activities every 8-10 minutes, use movement breaks", strings.Join(shortAttention, ", "))
		line("STRATEGY: Ring bell every 8 minutes, have these students stand and stretch for 30 seconds")
	}

	heading("CLASSROOM LAYOUT (Rearrange This Week):")
	front := individual
	if len(front) > 4 {
		front = front[:4]
	}
	line("FRONT ROW: Individual attention students (%s)", strings.Join(front, ", "))
	line("MIDDLE ROWS: Grade-level groups - Class 3 left side, Class 4 center, Class 5 right side")
	line("BACK LEFT CORNER: Peer tutoring station with small desk and manipulation materials")
	line("BACK RIGHT CORNER: Independent work station for advanced students")

	heading("PROGRESS TRACKING SYSTEM (Start Monday):")
	line("MONDAY: Quick assessment - check weekend practice with %s", orDefault(strings.Join(urgent, ", "), "all students"))
	line("WEDNESDAY: Peer tutor feedback - ask %s 'How is your buddy doing?'", orDefault(strings.Join(peerHelpers, ", "), "advanced students"))
	line("FRIDAY: Weekly goals check - use simple check/cross marking for each student's target skills")

	heading("MATERIALS NEEDED (Zero Cost):")
	line("20 small stones for counting (collect from playground)")
	line("3 cloth pieces for manipulation activities (use old saris/clothes)")
	line("2 small containers for storing materials (use empty containers)")
	line("1 progress tracking sheet per student (draw grid on paper)")

	return insights, nil
}

// MultiGradeRecommendations builds the closing recommendations page,
// personalized with the class's actual students and grade groups.
func MultiGradeRecommendations(ctx context.Context, store *ClassStore) ([]string, error) {
	names, err := store.StudentNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("student names: %w", err)
	}
	grades, err := store.GradeDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("grade distribution: %w", err)
	}

	nameAt := func(i int, fallback string) string {
		if i < len(names) {
			return names[i]
		}
		return fallback
	}
	tutoringPair := strings.Join(firstN(names, 2), ", ")
	if tutoringPair == "" {
		tutoringPair = "your strongest students"
	}

	recommendations := []string{
		fmt.Sprintf("ZONE-BASED CLASSROOM SETUP (Implement This Week): Divide classroom into 4 zones: (1) Front-left: Teacher instruction area with all grades, (2) Front-right: Individual help station for struggling students, (3) Back-left: Peer tutoring corner with %s, (4) Back-right: Independent work zone for advanced students. Each zone needs clear visual boundaries using chalk lines on floor.", tutoringPair),

		"BUDDY SYSTEM IMPLEMENTATION (Start Tuesday): Create specific pairs: Pair each struggling student with a peer helper. Meet every Tuesday 11:30-11:50 AM and Thursday 2:30-2:50 PM. Buddies sit together during these times only, return to grade groups for regular lessons. Teacher checks each pair for 2 minutes during buddy time.",

		"MULTI-LEVEL MATERIALS CREATION (Make This Weekend): Create ONE set of counting materials that serves all grades: Use 30 bottle caps numbered 1-30. Class 3 uses caps 1-10 for basic counting, Class 4 uses caps 1-20 for addition/subtraction, Class 5 uses all 30 for multiplication tables. Store in 3 labeled cloth bags for small, medium and large numbers.",

		fmt.Sprintf("ROTATION SCHEDULE (Daily Implementation): 9:00-9:20 AM: All grades together for morning song/prayer. 9:20-9:40 AM: Grade-specific instruction (teacher moves between %d groups every 7 minutes). 9:40-10:00 AM: Mixed-grade collaborative project. 10:00-10:15 AM: Individual work time. 10:15-10:30 AM: Cleanup and reflection with buddy pairs.", len(grades)),

		fmt.Sprintf("WEEKLY GOAL CONTRACTS (Start Monday): Give each student a simple card with 3 specific goals. For example, %s: (1) Solve 2 word problems using objects, (2) Help one classmate with addition, (3) Read math problems aloud before solving. Students check off goals daily, teacher reviews every Friday afternoon for 5 minutes per student.", nameAt(0, "Sample student")),

		"PARENT HOME ACTIVITIES (Send Note Wednesday): Create specific activity sheets for each grade level that parents can do with ZERO additional cost: Class 3: Count household items while doing chores, Class 4: Use cooking ingredients for addition/subtraction practice, Class 5: Calculate change while shopping. Include exact phrases for parents to use during daily routines.",

		"OBSERVATION-BASED ASSESSMENT (Daily 5-Minute Protocol): Use simple tally system on one sheet of paper: Each student gets a check (doing well), arrow (needs practice), or cross (struggling) for that day's focus skill. Check 3 students per day in detail, rotate so each student gets detailed observation twice per week. Friday: Quick review of week's tallies to plan next week.",

		"CROSS-GRADE LEARNING MATERIALS (Create Using Old Books): Make story cards from old textbook pictures: One picture can be used for Class 3 vocabulary practice, Class 4 sentence writing, and Class 5 paragraph creation. Example: Picture of market scene - Class 3 names items, Class 4 writes simple sentences, Class 5 creates story problems. Need 10 different picture cards total.",

		fmt.Sprintf("STUDENT LEADERSHIP SYSTEM (Assign Monday): Rotate weekly responsibilities: %s = Material Manager (distributes/collects supplies), %s = Time Keeper (uses hand clap to signal transitions), %s = Help Coordinator (identifies who needs assistance). Change roles weekly so everyone gets leadership practice.", nameAt(0, "Advanced student"), nameAt(1, "Second student"), nameAt(2, "Third student")),

		fmt.Sprintf("FOCUSED PROGRESS TRACKING (Target 2 Skills Per Student): Instead of tracking everything, focus on just 2 critical skills per student for 2 weeks. For example, if %s struggles with reading comprehension and math word problems, track only these two. Use simple notebook page: Student name, Skill 1 daily rating (1-5), Skill 2 daily rating (1-5), weekly summary. This makes progress visible and manageable for teacher and student.", nameAt(0, "a sample student")),
	}

	return recommendations, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
