package jmx

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const samplePlan = `<?xml version="1.0" encoding="UTF-8"?>
<jmeterTestPlan version="1.2" properties="5.0" jmeter="5.6.3">
  <hashTree>
    <TestPlan guiclass="TestPlanGui" testclass="TestPlan" testname="Checkout">
      <stringProp name="TestPlan.comments"></stringProp>
      <boolProp name="TestPlan.functional_mode">false</boolProp>
    </TestPlan>
    <hashTree>
      <ThreadGroup guiclass="ThreadGroupGui" testclass="ThreadGroup" testname="Buyers">
        <stringProp name="ThreadGroup.on_sample_error">continue</stringProp>
        <elementProp name="ThreadGroup.main_controller" elementType="LoopController">
          <boolProp name="LoopController.continue_forever">false</boolProp>
          <stringProp name="LoopController.loops">1</stringProp>
        </elementProp>
        <intProp name="ThreadGroup.num_threads">10</intProp>
        <intProp name="ThreadGroup.ramp_time">5</intProp>
        <boolProp name="ThreadGroup.scheduler">false</boolProp>
      </ThreadGroup>
      <hashTree>
        <CSVDataSet guiclass="TestBeanGUI" testclass="CSVDataSet" testname="Accounts">
          <stringProp name="filename">/tmp/old/accounts.csv</stringProp>
          <stringProp name="delimiter">,</stringProp>
        </CSVDataSet>
        <hashTree/>
        <HTTPSamplerProxy guiclass="HttpTestSampleGui" testclass="HTTPSamplerProxy" testname="GET /cart">
          <stringProp name="HTTPSampler.domain">staging.example.com</stringProp>
          <stringProp name="HTTPSampler.port">8443</stringProp>
          <stringProp name="HTTPSampler.protocol">https</stringProp>
          <stringProp name="HTTPSampler.path">/cart</stringProp>
        </HTTPSamplerProxy>
        <hashTree/>
      </hashTree>
    </hashTree>
  </hashTree>
</jmeterTestPlan>
`

func TestMutateUpdatesExistingProps(t *testing.T) {
	m := NewMutator("/data/csv")
	out := m.Mutate(samplePlan, Config{
		ThreadGroupJSON: `{"numberOfThreads": 25, "rampUpPeriod": 10}`,
	})

	assert.Contains(t, out, `<intProp name="ThreadGroup.num_threads">25</intProp>`)
	assert.Contains(t, out, `<intProp name="ThreadGroup.ramp_time">10</intProp>`)
	assert.NotContains(t, out, `<intProp name="ThreadGroup.num_threads">10<`)
	assert.NotContains(t, out, `<intProp name="ThreadGroup.ramp_time">5<`)
}

func TestMutatePreservesPropertyType(t *testing.T) {
	m := NewMutator("/data/csv")
	out := m.Mutate(samplePlan, Config{
		ThreadGroupJSON: `{"loopCount": 7}`,
	})

	// loops is declared as a stringProp in the plan and must stay one.
	assert.Contains(t, out, `<stringProp name="LoopController.loops">7</stringProp>`)
	assert.NotContains(t, out, `<intProp name="LoopController.loops">`)
}

func TestMutateInfiniteLoopWins(t *testing.T) {
	m := NewMutator("/data/csv")
	out := m.Mutate(samplePlan, Config{
		ThreadGroupJSON: `{"infiniteLoop": true, "loopCount": 50, "duration": 300}`,
	})

	assert.Contains(t, out, `<stringProp name="LoopController.loops">-1</stringProp>`)
	assert.Contains(t, out, `<boolProp name="LoopController.continue_forever">true</boolProp>`)
	assert.Contains(t, out, `<boolProp name="ThreadGroup.scheduler">false</boolProp>`)
	assert.NotContains(t, out, `ThreadGroup.duration`)
}

func TestMutateFiniteLoopDefaultsToOne(t *testing.T) {
	m := NewMutator("/data/csv")
	out := m.Mutate(samplePlan, Config{
		ThreadGroupJSON: `{"infiniteLoop": false}`,
	})

	assert.Contains(t, out, `<stringProp name="LoopController.loops">1</stringProp>`)
	assert.Contains(t, out, `<boolProp name="LoopController.continue_forever">false</boolProp>`)
}

func TestMutateDurationEnablesScheduler(t *testing.T) {
	m := NewMutator("/data/csv")
	out := m.Mutate(samplePlan, Config{
		ThreadGroupJSON: `{"duration": 120}`,
	})

	assert.Contains(t, out, `<boolProp name="ThreadGroup.scheduler">true</boolProp>`)
	assert.Contains(t, out, `<longProp name="ThreadGroup.duration">120</longProp>`)
}

func TestMutateStartupDelayWrittenForInfiniteRuns(t *testing.T) {
	m := NewMutator("/data/csv")
	out := m.Mutate(samplePlan, Config{
		ThreadGroupJSON: `{"infiniteLoop": true, "startupDelay": 15}`,
	})

	assert.Contains(t, out, `<stringProp name="ThreadGroup.delay">15</stringProp>`)
	assert.Contains(t, out, `<boolProp name="ThreadGroup.scheduler">false</boolProp>`)
}

func TestMutateThreadLifetimeTogglesScheduler(t *testing.T) {
	m := NewMutator("/data/csv")

	out := m.Mutate(samplePlan, Config{
		ThreadGroupJSON: `{"specifyThreadLifetime": true}`,
	})
	assert.Contains(t, out, `<boolProp name="ThreadGroup.scheduler">true</boolProp>`)

	out = m.Mutate(out, Config{
		ThreadGroupJSON: `{"specifyThreadLifetime": false}`,
	})
	assert.Contains(t, out, `<boolProp name="ThreadGroup.scheduler">false</boolProp>`)
}

func TestMutateInsertsMissingProps(t *testing.T) {
	m := NewMutator("/data/csv")
	out := m.Mutate(samplePlan, Config{
		ThreadGroupJSON: `{"delayThreadCreation": true, "sameUserOnEachIteration": true, "startupDelay": 30}`,
	})

	// Absent properties are inserted with the type the engine expects.
	assert.Contains(t, out, `<boolProp name="ThreadGroup.delayedStart">true</boolProp>`)
	assert.Contains(t, out, `<boolProp name="ThreadGroup.same_user_on_next_iteration">true</boolProp>`)
	assert.Contains(t, out, `<stringProp name="ThreadGroup.delay">30</stringProp>`)
	assert.Equal(t, 1, strings.Count(out, "ThreadGroup.delayedStart"))
}

func TestMutateActionAfterSamplerError(t *testing.T) {
	cases := []struct {
		action string
		want   string
	}{
		{"Continue", "continue"},
		{"Start Next Thread Loop", "startnextloop"},
		{"Stop Thread", "stopthread"},
		{"Stop Test", "stoptest"},
		{"Stop Test Now", "stoptestnow"},
		{"Anything Else", "continue"},
	}
	m := NewMutator("/data/csv")
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			out := m.Mutate(samplePlan, Config{
				ThreadGroupJSON: `{"actionAfterSamplerError": "` + tc.action + `"}`,
			})
			assert.Contains(t, out, `<stringProp name="ThreadGroup.on_sample_error">`+tc.want+`</stringProp>`)
		})
	}
}

func TestMutateAppliesToEveryThreadGroup(t *testing.T) {
	second := strings.Replace(samplePlan, "</jmeterTestPlan>", `
      <ThreadGroup guiclass="ThreadGroupGui" testclass="ThreadGroup" testname="Browsers">
        <intProp name="ThreadGroup.num_threads">2</intProp>
      </ThreadGroup>
</jmeterTestPlan>`, 1)

	m := NewMutator("/data/csv")
	out := m.Mutate(second, Config{
		ThreadGroupJSON: `{"numberOfThreads": 40, "delayThreadCreation": true}`,
	})

	// Values are rewritten in every group, new properties land in the first.
	assert.Equal(t, 2, strings.Count(out, `<intProp name="ThreadGroup.num_threads">40</intProp>`))
	assert.Equal(t, 1, strings.Count(out, `<boolProp name="ThreadGroup.delayedStart">true</boolProp>`))
	assert.Less(t, strings.Index(out, "ThreadGroup.delayedStart"), strings.Index(out, "Browsers"))
}

func TestMutateServerConfigWritesBothKeys(t *testing.T) {
	m := NewMutator("/data/csv")
	out := m.Mutate(samplePlan, Config{
		ServerJSON: `{"server": "prod.example.com", "port": 443, "protocol": "https"}`,
	})

	assert.Contains(t, out, `<stringProp name="HTTPSampler.domain">prod.example.com</stringProp>`)
	assert.Contains(t, out, `<stringProp name="HTTPSampler.serverName">prod.example.com</stringProp>`)
	assert.Contains(t, out, `<stringProp name="HTTPSampler.port">443</stringProp>`)
	assert.Contains(t, out, `<stringProp name="HTTPSampler.portNumber">443</stringProp>`)
	assert.Contains(t, out, `<stringProp name="HTTPSampler.protocol">https</stringProp>`)
	assert.Contains(t, out, `<stringProp name="HTTPSampler.protocolType">https</stringProp>`)
}

func TestMutateMalformedConfigLeavesDocumentUntouched(t *testing.T) {
	m := NewMutator("/data/csv")

	out := m.Mutate(samplePlan, Config{ThreadGroupJSON: `{not json`})
	assert.Equal(t, samplePlan, out)

	out = m.Mutate(samplePlan, Config{ServerJSON: `[1,2,3`})
	assert.Equal(t, samplePlan, out)
}

func TestMutateEmptyConfigIsIdentity(t *testing.T) {
	m := NewMutator("/data/csv")
	assert.Equal(t, samplePlan, m.Mutate(samplePlan, Config{}))
}

func TestMutateWithoutThreadGroupLeavesInsertionsOut(t *testing.T) {
	plain := `<?xml version="1.0"?><jmeterTestPlan><hashTree/></jmeterTestPlan>`
	m := NewMutator("/data/csv")
	out := m.Mutate(plain, Config{ThreadGroupJSON: `{"delayThreadCreation": true}`})
	assert.Equal(t, plain, out)
}

func TestRewriteDataFileRefs(t *testing.T) {
	m := NewMutator("/home/ubuntu/stress-admin-storage/csv")

	out := m.Mutate(samplePlan, Config{DataFilePath: "/uploads/7c1f/accounts.csv"})
	require.Contains(t, out,
		`<stringProp name="filename">/home/ubuntu/stress-admin-storage/csv/accounts.csv</stringProp>`)

	// Filename properties outside a CSV reader stay as they are.
	withConfig := strings.Replace(samplePlan, "</jmeterTestPlan>", `
      <ResultCollector testname="Summary">
        <stringProp name="filename">/var/results/summary.jtl</stringProp>
      </ResultCollector>
</jmeterTestPlan>`, 1)
	out = m.Mutate(withConfig, Config{DataFilePath: "/uploads/7c1f/accounts.csv"})
	assert.Contains(t, out, `<stringProp name="filename">/var/results/summary.jtl</stringProp>`)

	// Rewriting an already rewritten plan changes nothing.
	again := m.Mutate(out, Config{DataFilePath: "/uploads/7c1f/accounts.csv"})
	assert.Equal(t, out, again)
}

func TestRewriteDataFileRefsCoversEveryReader(t *testing.T) {
	two := strings.Replace(samplePlan, "</jmeterTestPlan>", `
      <CSVDataSet guiclass="TestBeanGUI" testclass="CSVDataSet" testname="Coupons">
        <stringProp name="filename">coupons.csv</stringProp>
      </CSVDataSet>
</jmeterTestPlan>`, 1)

	m := NewMutator("/data/csv")
	out := m.Mutate(two, Config{DataFilePath: "shared.csv"})
	assert.Equal(t, 2, strings.Count(out, `<stringProp name="filename">/data/csv/shared.csv</stringProp>`))
}

func TestSetPropRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		threads := rapid.IntRange(1, 100000).Draw(t, "threads")
		ramp := rapid.IntRange(0, 3600).Draw(t, "ramp")

		m := NewMutator("/data/csv")
		cfg := Config{
			ThreadGroupJSON: `{"numberOfThreads": ` + strconv.Itoa(threads) + `, "rampUpPeriod": ` + strconv.Itoa(ramp) + `}`,
		}
		out := m.Mutate(samplePlan, cfg)

		if !strings.Contains(out, `<intProp name="ThreadGroup.num_threads">`+strconv.Itoa(threads)+`</intProp>`) {
			t.Fatalf("thread count %d not written", threads)
		}
		if strings.Count(out, "ThreadGroup.num_threads") != 1 {
			t.Fatalf("thread count property duplicated")
		}
		if m.Mutate(out, cfg) != out {
			t.Fatalf("second application changed the document")
		}
	})
}
